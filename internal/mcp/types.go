package mcp

import "github.com/probeworks/winprobe/internal/display"

// BoundsArg is a bounds value supplied by a tool caller. Width and height are
// always required; x and y are present only for rect-shaped values, and their
// presence is what distinguishes a rectangle from a plain size.
type BoundsArg struct {
	X      *int `json:"x,omitempty" jsonschema:"X position. Present only for rect-shaped bounds."`
	Y      *int `json:"y,omitempty" jsonschema:"Y position. Present only for rect-shaped bounds."`
	Width  int  `json:"width" jsonschema:"required,Width in DIPs"`
	Height int  `json:"height" jsonschema:"required,Height in DIPs"`
}

// isRect reports whether the caller supplied a position.
func (b BoundsArg) isRect() bool {
	return b.X != nil || b.Y != nil
}

// bounds converts the argument to a display bounds value.
func (b BoundsArg) bounds() display.Bounds {
	if b.isRect() {
		r := display.Rect{Width: b.Width, Height: b.Height}
		if b.X != nil {
			r.X = *b.X
		}
		if b.Y != nil {
			r.Y = *b.Y
		}
		return r
	}
	return display.Size{Width: b.Width, Height: b.Height}
}

// RoundingProneInput is the input for the rounding_prone tool.
type RoundingProneInput struct {
	Scale float64 `json:"scale" jsonschema:"required,Display scale factor to classify"`
}

// RoundingProneOutput is the output for the rounding_prone tool.
type RoundingProneOutput struct {
	Scale     float64 `json:"scale"`
	Prone     bool    `json:"prone"`
	Tolerance int     `json:"tolerance"`
}

// CompareBoundsInput is the input for the compare_bounds tool.
type CompareBoundsInput struct {
	Actual   BoundsArg `json:"actual" jsonschema:"required,Observed bounds"`
	Expected BoundsArg `json:"expected" jsonschema:"required,Expected bounds"`
	Scale    float64   `json:"scale,omitempty" jsonschema:"Display scale factor governing the tolerance. When omitted, the scale is read live from the connected shell."`
	TargetID string    `json:"target_id,omitempty" jsonschema:"Target whose display provides the scale when scale is omitted (default: first page)"`
}

// CompareBoundsOutput is the output for the compare_bounds tool.
type CompareBoundsOutput struct {
	Equal     bool    `json:"equal"`
	Tolerance int     `json:"tolerance"`
	Scale     float64 `json:"scale"`
	Mismatch  string  `json:"mismatch,omitempty"`
}

// GetWindowInput is the input for the get_window tool.
type GetWindowInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose window to inspect (default: first page)"`
}

// GetWindowOutput is the output for the get_window tool.
type GetWindowOutput struct {
	WindowID int64  `json:"window_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	State    string `json:"state"`
}

// SetWindowBoundsInput is the input for the set_window_bounds tool.
type SetWindowBoundsInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose window to change (default: first page)"`
	X        *int   `json:"x,omitempty" jsonschema:"New X position (current position kept when omitted)"`
	Y        *int   `json:"y,omitempty" jsonschema:"New Y position (current position kept when omitted)"`
	Width    int    `json:"width,omitempty" jsonschema:"New width (current width kept when 0)"`
	Height   int    `json:"height,omitempty" jsonschema:"New height (current height kept when 0)"`
}

// SetWindowStateInput is the input for the set_window_state tool.
type SetWindowStateInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose window to change (default: first page)"`
	State    string `json:"state" jsonschema:"required,One of normal minimized maximized fullscreen"`
}

// GetDisplayInput is the input for the get_display tool.
type GetDisplayInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose hosting display to inspect (default: first page)"`
}

// GetDisplayOutput is the output for the get_display tool.
type GetDisplayOutput struct {
	ScaleFactor   float64      `json:"scale_factor"`
	RoundingProne bool         `json:"rounding_prone"`
	Bounds        display.Rect `json:"bounds"`
	WorkArea      display.Rect `json:"work_area"`
}

// ProbeWindowFlagsInput is the input for the probe_window_flags tool.
type ProbeWindowFlagsInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose window to probe (default: first page)"`
}

// ProbeWindowFlagsOutput is the output for the probe_window_flags tool.
type ProbeWindowFlagsOutput struct {
	Resizable bool `json:"resizable"`
	Movable   bool `json:"movable"`
}

// MeasureFrameRateInput is the input for the measure_frame_rate tool.
type MeasureFrameRateInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target to screencast (default: first page)"`
	Seconds  int    `json:"seconds,omitempty" jsonschema:"Measurement duration in seconds (default: 2)"`
}

// MeasureFrameRateOutput is the output for the measure_frame_rate tool.
type MeasureFrameRateOutput struct {
	Frames    int     `json:"frames"`
	ElapsedMS int64   `json:"elapsed_ms"`
	PerSecond float64 `json:"per_second"`
}

// CheckIsolationInput is the input for the check_isolation tool.
type CheckIsolationInput struct {
	TargetID string `json:"target_id,omitempty" jsonschema:"Target whose script worlds to check (default: first page)"`
}

// CheckIsolationOutput is the output for the check_isolation tool.
type CheckIsolationOutput struct {
	Isolated         bool `json:"isolated"`
	MainSeesIsolated bool `json:"main_sees_isolated"`
	IsolatedSeesMain bool `json:"isolated_sees_main"`
	SharedDOMVisible bool `json:"shared_dom_visible"`
}

// ListExtensionsInput is the input for the list_extensions tool.
type ListExtensionsInput struct{}

// ExtensionEntry describes one loaded extension context.
type ExtensionEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// ListExtensionsOutput is the output for the list_extensions tool.
type ListExtensionsOutput struct {
	Extensions []ExtensionEntry `json:"extensions"`
}
