// Package display models screen geometry and provides the tolerance-aware
// bounds comparison used by window assertions. Physical pixel rounding under
// fractional (and certain odd integer) scale factors can shift reported
// window bounds by a small amount, so comparisons widen their acceptance
// window only on displays where that rounding is known to occur.
package display

// Size is a width/height pair in logical pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a rectangle in logical pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Bounds is implemented by the two geometry shapes a comparison accepts:
// Size (a width/height pair) and Rect (a full rectangle). Callers never need
// to convert between the two; the comparator handles each shape directly.
type Bounds interface {
	boundsFields() []boundsField
}

type boundsField struct {
	name  string
	value int
}

func (s Size) boundsFields() []boundsField {
	return []boundsField{
		{"width", s.Width},
		{"height", s.Height},
	}
}

func (r Rect) boundsFields() []boundsField {
	return []boundsField{
		{"x", r.X},
		{"y", r.Y},
		{"width", r.Width},
		{"height", r.Height},
	}
}

// Info describes a display output.
type Info struct {
	Bounds      Rect    `json:"bounds"`
	WorkArea    Rect    `json:"workArea"`
	ScaleFactor float64 `json:"scaleFactor"`
}
