package display

import (
	"fmt"
	"math"
	"testing"
)

// RoundingProne reports whether window geometry on a display with the given
// scale factor may be off by a small integer amount after physical pixel
// rounding. Non-integer factors (1.5, 2.25) always round; odd integer factors
// above 2 have been observed to round as well. Integer factors of 1, 2, and
// even integers above 2 are treated as exact.
//
// The odd-integer rule is empirical; keep it as-is rather than generalizing.
func RoundingProne(scale float64) bool {
	rounded := math.Round(scale)
	if rounded != scale {
		return true
	}
	n := int(rounded)
	return n > 2 && n%2 == 1
}

// ScaleFunc reports the current scale factor of the display under test.
// It is queried on every comparison, never cached: the factor can change
// between runs (different machine, display reconfiguration).
type ScaleFunc func() (float64, error)

// Comparator decides whether two bounds values are acceptably equal for the
// display whose scale factor its source reports. On rounding-prone displays
// each field may differ by at most one unit; everywhere else equality is
// exact.
type Comparator struct {
	scale ScaleFunc
}

// NewComparator returns a comparator that queries scale before each
// comparison.
func NewComparator(scale ScaleFunc) Comparator {
	return Comparator{scale: scale}
}

// FixedComparator returns a comparator for a known, constant scale factor.
func FixedComparator(scale float64) Comparator {
	return Comparator{scale: func() (float64, error) { return scale, nil }}
}

// Tolerance returns the per-field tolerance for the current scale factor:
// 1 on rounding-prone displays, 0 otherwise.
func (c Comparator) Tolerance() (int, error) {
	if c.scale == nil {
		return 0, nil
	}
	s, err := c.scale()
	if err != nil {
		return 0, fmt.Errorf("reading scale factor: %w", err)
	}
	if RoundingProne(s) {
		return 1, nil
	}
	return 0, nil
}

// Equal compares actual against expected field by field. Both values must
// have the same shape (both Size or both Rect). A non-nil error names the
// first field outside tolerance along with both values.
func (c Comparator) Equal(actual, expected Bounds) error {
	if actual == nil || expected == nil {
		return fmt.Errorf("cannot compare nil bounds")
	}

	af := actual.boundsFields()
	ef := expected.boundsFields()
	if len(af) != len(ef) {
		return fmt.Errorf("shape mismatch: %T vs %T", actual, expected)
	}

	tol, err := c.Tolerance()
	if err != nil {
		return err
	}

	for i := range af {
		diff := af[i].value - ef[i].value
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			return fmt.Errorf("%s: got %d, want %d (tolerance %d)", af[i].name, af[i].value, ef[i].value, tol)
		}
	}
	return nil
}

// AssertEqual fails the test when actual and expected differ beyond the
// comparator's tolerance. The failure is reported through tb, not panicked.
func AssertEqual(tb testing.TB, c Comparator, actual, expected Bounds) {
	tb.Helper()
	if err := c.Equal(actual, expected); err != nil {
		tb.Errorf("bounds mismatch: %v", err)
	}
}
