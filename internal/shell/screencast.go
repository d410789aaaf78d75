package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FrameRate summarizes frames observed during a screencast measurement.
type FrameRate struct {
	Frames    int           `json:"frames"`
	Elapsed   time.Duration `json:"elapsed"`
	PerSecond float64       `json:"perSecond"`
}

// MeasureFrameRate runs a screencast on a target for the given duration and
// reports the achieved frame rate. Frame timing comes from the shell's own
// frame metadata timestamps when available, so the measurement isn't skewed
// by protocol transit time; the wall-clock duration is the fallback.
func (c *Client) MeasureFrameRate(ctx context.Context, targetID string, duration time.Duration) (*FrameRate, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", duration)
	}

	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	_, err = c.CallSession(ctx, sessionID, "Page.enable", nil)
	if err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}

	frameCh := c.subscribeEvent(sessionID, "Page.screencastFrame")
	defer c.unsubscribeEvent(sessionID, "Page.screencastFrame", frameCh)

	_, err = c.CallSession(ctx, sessionID, "Page.startScreencast", map[string]interface{}{
		"format":  "jpeg",
		"quality": 50,
	})
	if err != nil {
		return nil, fmt.Errorf("starting screencast: %w", err)
	}
	defer c.CallSession(context.Background(), sessionID, "Page.stopScreencast", nil)

	start := time.Now()
	deadline := time.After(duration)

	var frames int
	var firstTS, lastTS float64

	for {
		select {
		case params, ok := <-frameCh:
			if !ok {
				return nil, ErrConnectionClosed
			}

			var frame struct {
				SessionID int64 `json:"sessionId"`
				Metadata  struct {
					Timestamp float64 `json:"timestamp"`
				} `json:"metadata"`
			}
			if err := json.Unmarshal(params, &frame); err != nil {
				return nil, fmt.Errorf("parsing screencast frame: %w", err)
			}

			frames++
			if firstTS == 0 {
				firstTS = frame.Metadata.Timestamp
			}
			lastTS = frame.Metadata.Timestamp

			// Frames stall until acked.
			_, err := c.CallSession(ctx, sessionID, "Page.screencastFrameAck", map[string]interface{}{
				"sessionId": frame.SessionID,
			})
			if err != nil {
				return nil, fmt.Errorf("acking screencast frame: %w", err)
			}

		case <-deadline:
			elapsed := time.Since(start)

			rate := FrameRate{Frames: frames, Elapsed: elapsed}
			if frames > 1 && lastTS > firstTS {
				span := lastTS - firstTS
				rate.PerSecond = float64(frames-1) / span
			} else if elapsed > 0 {
				rate.PerSecond = float64(frames) / elapsed.Seconds()
			}
			return &rate, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
