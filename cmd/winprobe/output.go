package main

import (
	"encoding/json"
	"fmt"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

// Implement TextValuer for scalar-ish result types.

func (r TitleResult) TextValue() string { return r.Title }
func (r ValueResult) TextValue() string { return r.Value }
func (r ProneResult) TextValue() string { return fmt.Sprintf("%t", r.Prone) }
func (r ScaleResult) TextValue() string { return fmt.Sprintf("%g", r.ScaleFactor) }
func (r StatusResult) TextValue() string {
	if r.Running {
		return fmt.Sprintf("listening on %s:%d", r.Host, r.Port)
	}
	return fmt.Sprintf("nothing listening on %s:%d", r.Host, r.Port)
}
func (r WindowResult) TextValue() string {
	return fmt.Sprintf("%d,%d %dx%d (%s)", r.X, r.Y, r.Width, r.Height, r.State)
}
func (r CompareResult) TextValue() string {
	if r.Equal {
		return fmt.Sprintf("equal (tolerance %d at scale %g)", r.Tolerance, r.Scale)
	}
	return r.Mismatch
}
func (r FPSResult) TextValue() string {
	return fmt.Sprintf("%.1f fps (%d frames in %dms)", r.PerSecond, r.Frames, r.ElapsedMS)
}
func (r IsolationResult) TextValue() string {
	if r.Isolated {
		return "isolated"
	}
	return "not isolated"
}
func (r ScreenshotResult) TextValue() string {
	return fmt.Sprintf("%s (%d bytes)", r.Path, r.Bytes)
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}
