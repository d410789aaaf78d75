package shell

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/probeworks/winprobe/internal/display"
)

// displayProbeExpr reads the hosting display's geometry and scale factor
// from inside the page. availLeft/availTop are non-standard but present in
// Chromium shells; default them so the expression never throws.
const displayProbeExpr = `({
	scaleFactor: window.devicePixelRatio,
	width: screen.width,
	height: screen.height,
	availX: screen.availLeft || 0,
	availY: screen.availTop || 0,
	availWidth: screen.availWidth,
	availHeight: screen.availHeight
})`

// PrimaryDisplay reports the geometry and scale factor of the display
// hosting the given target. The value is read live from the shell on every
// call; it is never cached, since the factor legitimately differs between
// machines and can change between runs.
func (c *Client) PrimaryDisplay(ctx context.Context, targetID string) (*display.Info, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	result, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    displayProbeExpr,
		"returnByValue": true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying display: %w", err)
	}

	var resp struct {
		Result struct {
			Value struct {
				ScaleFactor float64 `json:"scaleFactor"`
				Width       int     `json:"width"`
				Height      int     `json:"height"`
				AvailX      int     `json:"availX"`
				AvailY      int     `json:"availY"`
				AvailWidth  int     `json:"availWidth"`
				AvailHeight int     `json:"availHeight"`
			} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing display response: %w", err)
	}
	if resp.ExceptionDetails != nil {
		return nil, fmt.Errorf("display query failed: %s", resp.ExceptionDetails.Text)
	}

	v := resp.Result.Value
	if v.ScaleFactor <= 0 {
		return nil, fmt.Errorf("shell reported invalid scale factor %v", v.ScaleFactor)
	}

	return &display.Info{
		Bounds:      display.Rect{Width: v.Width, Height: v.Height},
		WorkArea:    display.Rect{X: v.AvailX, Y: v.AvailY, Width: v.AvailWidth, Height: v.AvailHeight},
		ScaleFactor: v.ScaleFactor,
	}, nil
}

// ScaleSource returns a scale source that queries the target's display on
// every call. The source captures ctx, so it must not outlive the operation
// that created it: once ctx is done, every query fails with its error.
func (c *Client) ScaleSource(ctx context.Context, targetID string) display.ScaleFunc {
	return func() (float64, error) {
		info, err := c.PrimaryDisplay(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return info.ScaleFactor, nil
	}
}

// Comparator returns a bounds comparator bound to the target's display.
// Comparisons query the scale under ctx, so the comparator is only valid
// within the operation that created it.
func (c *Client) Comparator(ctx context.Context, targetID string) display.Comparator {
	return display.NewComparator(c.ScaleSource(ctx, targetID))
}
