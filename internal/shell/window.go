package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WindowForTarget returns the shell window hosting the given target.
func (c *Client) WindowForTarget(ctx context.Context, targetID string) (*Window, error) {
	result, err := c.Call(ctx, "Browser.getWindowForTarget", map[string]interface{}{
		"targetId": targetID,
	})
	if err != nil {
		return nil, fmt.Errorf("getting window for target: %w", err)
	}

	var resp struct {
		WindowID int64        `json:"windowId"`
		Bounds   WindowBounds `json:"bounds"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing window response: %w", err)
	}

	return &Window{ID: resp.WindowID, Bounds: resp.Bounds}, nil
}

// GetWindowBounds returns the current bounds and state of a window.
func (c *Client) GetWindowBounds(ctx context.Context, windowID int64) (*WindowBounds, error) {
	result, err := c.Call(ctx, "Browser.getWindowBounds", map[string]interface{}{
		"windowId": windowID,
	})
	if err != nil {
		return nil, fmt.Errorf("getting window bounds: %w", err)
	}

	var resp struct {
		Bounds WindowBounds `json:"bounds"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing bounds response: %w", err)
	}

	return &resp.Bounds, nil
}

// setBoundsPayload is the wire form of a bounds update. The shell leaves any
// property missing from the payload unchanged, so geometry travels as
// pointers: a geometry-carrying update serializes all four fields, zero
// coordinates included, while a state-only update carries none of them.
type setBoundsPayload struct {
	Left        *int        `json:"left,omitempty"`
	Top         *int        `json:"top,omitempty"`
	Width       *int        `json:"width,omitempty"`
	Height      *int        `json:"height,omitempty"`
	WindowState WindowState `json:"windowState,omitempty"`
}

// SetWindowBounds applies bounds to a window. The shell rejects geometry
// combined with a minimized/maximized/fullscreen state, so that combination
// is refused here before it reaches the wire.
func (c *Client) SetWindowBounds(ctx context.Context, windowID int64, bounds WindowBounds) error {
	if bounds.WindowState != "" && bounds.WindowState != WindowStateNormal && bounds.hasGeometry() {
		return fmt.Errorf("cannot combine geometry with window state %q", bounds.WindowState)
	}

	payload := setBoundsPayload{WindowState: bounds.WindowState}
	if bounds.hasGeometry() {
		payload.Left = &bounds.Left
		payload.Top = &bounds.Top
		payload.Width = &bounds.Width
		payload.Height = &bounds.Height
	}

	_, err := c.Call(ctx, "Browser.setWindowBounds", map[string]interface{}{
		"windowId": windowID,
		"bounds":   payload,
	})
	if err != nil {
		return fmt.Errorf("setting window bounds: %w", err)
	}
	return nil
}

// SetWindowState transitions a window to the given state. Transitions out of
// minimized/maximized/fullscreen go through normal first, which is what the
// shell requires.
func (c *Client) SetWindowState(ctx context.Context, windowID int64, state WindowState) error {
	current, err := c.GetWindowBounds(ctx, windowID)
	if err != nil {
		return err
	}

	if current.WindowState == state {
		return nil
	}

	if current.WindowState != WindowStateNormal && state != WindowStateNormal {
		if err := c.SetWindowBounds(ctx, windowID, WindowBounds{WindowState: WindowStateNormal}); err != nil {
			return err
		}
	}

	return c.SetWindowBounds(ctx, windowID, WindowBounds{WindowState: state})
}

// Minimize minimizes the window.
func (c *Client) Minimize(ctx context.Context, windowID int64) error {
	return c.SetWindowState(ctx, windowID, WindowStateMinimized)
}

// Maximize maximizes the window.
func (c *Client) Maximize(ctx context.Context, windowID int64) error {
	return c.SetWindowState(ctx, windowID, WindowStateMaximized)
}

// Fullscreen puts the window into fullscreen.
func (c *Client) Fullscreen(ctx context.Context, windowID int64) error {
	return c.SetWindowState(ctx, windowID, WindowStateFullscreen)
}

// Restore returns the window to its normal state.
func (c *Client) Restore(ctx context.Context, windowID int64) error {
	return c.SetWindowState(ctx, windowID, WindowStateNormal)
}

// MoveWindow repositions a window without changing its size.
func (c *Client) MoveWindow(ctx context.Context, windowID int64, x, y int) error {
	current, err := c.GetWindowBounds(ctx, windowID)
	if err != nil {
		return err
	}
	if current.WindowState != WindowStateNormal {
		return fmt.Errorf("cannot move window in state %q", current.WindowState)
	}

	return c.SetWindowBounds(ctx, windowID, WindowBounds{
		Left:   x,
		Top:    y,
		Width:  current.Width,
		Height: current.Height,
	})
}

// ResizeWindow changes a window's size without moving it.
func (c *Client) ResizeWindow(ctx context.Context, windowID int64, width, height int) error {
	current, err := c.GetWindowBounds(ctx, windowID)
	if err != nil {
		return err
	}
	if current.WindowState != WindowStateNormal {
		return fmt.Errorf("cannot resize window in state %q", current.WindowState)
	}

	return c.SetWindowBounds(ctx, windowID, WindowBounds{
		Left:   current.Left,
		Top:    current.Top,
		Width:  width,
		Height: height,
	})
}

// waitForBounds polls a window's bounds until check passes or the deadline
// elapses, returning the last observed bounds either way. Window managers
// apply geometry asynchronously, so a short settle loop is needed after
// every bounds change.
func (c *Client) waitForBounds(ctx context.Context, windowID int64, timeout time.Duration, check func(WindowBounds) bool) (*WindowBounds, error) {
	deadline := time.Now().Add(timeout)
	var last *WindowBounds

	for {
		bounds, err := c.GetWindowBounds(ctx, windowID)
		if err != nil {
			return nil, err
		}
		last = bounds

		if check(*bounds) || time.Now().After(deadline) {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
