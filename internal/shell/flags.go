package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/probeworks/winprobe/internal/display"
)

// ProbeResult is the outcome of a window capability probe.
type ProbeResult struct {
	Allowed   bool         `json:"allowed"`
	Requested display.Rect `json:"requested"`
	Observed  display.Rect `json:"observed"`
}

// probeSettle is how long a probe waits for the window manager to apply a
// geometry change before judging the result.
const probeSettle = 500 * time.Millisecond

// ProbeResizable checks whether the window hosting targetID can be resized:
// it grows the window, reads the result back, judges it with the comparator
// (so sub-pixel rounding on fractional-scale displays doesn't flip the
// verdict), and restores the original geometry.
func (c *Client) ProbeResizable(ctx context.Context, targetID string, cmp display.Comparator) (*ProbeResult, error) {
	win, err := c.WindowForTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if win.Bounds.WindowState != WindowStateNormal {
		return nil, fmt.Errorf("window must be in normal state to probe resizability, is %q", win.Bounds.WindowState)
	}

	orig := win.Bounds
	want := orig
	want.Width += 64
	want.Height += 48

	if err := c.SetWindowBounds(ctx, win.ID, want); err != nil {
		return nil, err
	}

	observed, err := c.waitForBounds(ctx, win.ID, probeSettle, func(b WindowBounds) bool {
		return cmp.Equal(b.Size(), want.Size()) == nil
	})
	if err != nil {
		return nil, err
	}

	// Restore regardless of outcome.
	if restoreErr := c.SetWindowBounds(ctx, win.ID, orig); restoreErr != nil {
		return nil, fmt.Errorf("restoring window bounds: %w", restoreErr)
	}

	return &ProbeResult{
		Allowed:   cmp.Equal(observed.Size(), want.Size()) == nil,
		Requested: want.Rect(),
		Observed:  observed.Rect(),
	}, nil
}

// ProbeMovable checks whether the window hosting targetID can be moved, with
// the same judge-and-restore discipline as ProbeResizable.
func (c *Client) ProbeMovable(ctx context.Context, targetID string, cmp display.Comparator) (*ProbeResult, error) {
	win, err := c.WindowForTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if win.Bounds.WindowState != WindowStateNormal {
		return nil, fmt.Errorf("window must be in normal state to probe movability, is %q", win.Bounds.WindowState)
	}

	orig := win.Bounds
	want := orig
	want.Left += 32
	want.Top += 24

	if err := c.SetWindowBounds(ctx, win.ID, want); err != nil {
		return nil, err
	}

	observed, err := c.waitForBounds(ctx, win.ID, probeSettle, func(b WindowBounds) bool {
		return cmp.Equal(b.Rect(), want.Rect()) == nil
	})
	if err != nil {
		return nil, err
	}

	if restoreErr := c.SetWindowBounds(ctx, win.ID, orig); restoreErr != nil {
		return nil, fmt.Errorf("restoring window bounds: %w", restoreErr)
	}

	return &ProbeResult{
		Allowed:   cmp.Equal(observed.Rect(), want.Rect()) == nil,
		Requested: want.Rect(),
		Observed:  observed.Rect(),
	}, nil
}

// ProbeClosable closes the target and reports whether it actually went away.
// The target is gone afterwards when the probe succeeds; callers own creating
// a disposable target first.
func (c *Client) ProbeClosable(ctx context.Context, targetID string) (bool, error) {
	if err := c.CloseTarget(ctx, targetID); err != nil {
		return false, err
	}

	deadline := time.Now().Add(probeSettle)
	for {
		targets, err := c.Targets(ctx)
		if err != nil {
			return false, err
		}

		found := false
		for _, t := range targets {
			if t.ID == targetID {
				found = true
				break
			}
		}
		if !found {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
