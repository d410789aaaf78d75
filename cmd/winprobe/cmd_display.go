package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/probeworks/winprobe/internal/display"
	"github.com/probeworks/winprobe/internal/shell"
)

// DisplayResult describes the display hosting the target.
type DisplayResult struct {
	ScaleFactor   float64      `json:"scaleFactor"`
	RoundingProne bool         `json:"roundingProne"`
	Bounds        display.Rect `json:"bounds"`
	WorkArea      display.Rect `json:"workArea"`
}

// ScaleResult holds a display scale factor.
type ScaleResult struct {
	ScaleFactor float64 `json:"scaleFactor"`
}

// ProneResult classifies a scale factor.
type ProneResult struct {
	Scale     float64 `json:"scale"`
	Prone     bool    `json:"prone"`
	Tolerance int     `json:"tolerance"`
}

// CompareResult reports a bounds comparison.
type CompareResult struct {
	Equal     bool    `json:"equal"`
	Tolerance int     `json:"tolerance"`
	Scale     float64 `json:"scale"`
	Mismatch  string  `json:"mismatch,omitempty"`
}

func cmdDisplay(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		info, err := client.PrimaryDisplay(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return DisplayResult{
			ScaleFactor:   info.ScaleFactor,
			RoundingProne: display.RoundingProne(info.ScaleFactor),
			Bounds:        info.Bounds,
			WorkArea:      info.WorkArea,
		}, nil
	})
}

func cmdScale(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		info, err := client.PrimaryDisplay(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return ScaleResult{ScaleFactor: info.ScaleFactor}, nil
	})
}

func cmdProne(cfg *Config, scaleArg string) int {
	scale, err := strconv.ParseFloat(scaleArg, 64)
	if err != nil || scale <= 0 {
		fmt.Fprintf(cfg.Stderr, "invalid scale factor: %s\n", scaleArg)
		return ExitError
	}

	prone := display.RoundingProne(scale)
	tolerance := 0
	if prone {
		tolerance = 1
	}
	return outputResult(cfg, ProneResult{Scale: scale, Prone: prone, Tolerance: tolerance})
}

// parseBounds parses "WxH" into a Size and "X,Y,WxH" into a Rect.
func parseBounds(s string) (display.Bounds, error) {
	var x, y int
	dims := s
	if i := strings.LastIndex(s, ","); i >= 0 {
		pos := s[:i]
		dims = s[i+1:]
		j := strings.Index(pos, ",")
		if j < 0 {
			return nil, fmt.Errorf("invalid bounds %q: want WxH or X,Y,WxH", s)
		}
		var err error
		if x, err = strconv.Atoi(strings.TrimSpace(pos[:j])); err != nil {
			return nil, fmt.Errorf("invalid bounds %q: bad x", s)
		}
		if y, err = strconv.Atoi(strings.TrimSpace(pos[j+1:])); err != nil {
			return nil, fmt.Errorf("invalid bounds %q: bad y", s)
		}
	}

	k := strings.Index(dims, "x")
	if k < 0 {
		return nil, fmt.Errorf("invalid bounds %q: want WxH or X,Y,WxH", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(dims[:k]))
	if err != nil || w < 0 {
		return nil, fmt.Errorf("invalid bounds %q: bad width", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(dims[k+1:]))
	if err != nil || h < 0 {
		return nil, fmt.Errorf("invalid bounds %q: bad height", s)
	}

	if strings.Contains(s, ",") {
		return display.Rect{X: x, Y: y, Width: w, Height: h}, nil
	}
	return display.Size{Width: w, Height: h}, nil
}

func cmdCompare(cfg *Config, actualArg, expectedArg string) int {
	actual, err := parseBounds(actualArg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	expected, err := parseBounds(expectedArg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	_, actualIsRect := actual.(display.Rect)
	_, expectedIsRect := expected.(display.Rect)
	if actualIsRect != expectedIsRect {
		fmt.Fprintln(cfg.Stderr, "error: actual and expected must have the same shape (both WxH or both X,Y,WxH)")
		return ExitError
	}

	// With a pinned scale the comparison needs no shell at all.
	if cfg.Scale > 0 {
		return outputResult(cfg, compareWith(display.FixedComparator(cfg.Scale), cfg.Scale, actual, expected))
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		info, err := client.PrimaryDisplay(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return compareWith(display.FixedComparator(info.ScaleFactor), info.ScaleFactor, actual, expected), nil
	})
}

func compareWith(cmp display.Comparator, scale float64, actual, expected display.Bounds) CompareResult {
	tolerance, _ := cmp.Tolerance()
	out := CompareResult{Tolerance: tolerance, Scale: scale}
	if err := cmp.Equal(actual, expected); err != nil {
		out.Mismatch = err.Error()
	} else {
		out.Equal = true
	}
	return out
}
