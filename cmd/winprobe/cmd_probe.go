package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/probeworks/winprobe/internal/shell"
)

// ProbeOutcome reports the result of the capability probes.
type ProbeOutcome struct {
	Resizable *shell.ProbeResult `json:"resizable,omitempty"`
	Movable   *shell.ProbeResult `json:"movable,omitempty"`
	Closable  *bool              `json:"closable,omitempty"`
}

// FPSResult reports a frame-rate measurement.
type FPSResult struct {
	Frames    int     `json:"frames"`
	ElapsedMS int64   `json:"elapsedMs"`
	PerSecond float64 `json:"perSecond"`
}

// IsolationResult reports an isolated-world verification.
type IsolationResult struct {
	Isolated         bool `json:"isolated"`
	MainSeesIsolated bool `json:"mainSeesIsolated"`
	IsolatedSeesMain bool `json:"isolatedSeesMain"`
	SharedDOMVisible bool `json:"sharedDomVisible"`
}

func cmdProbe(cfg *Config, what string) int {
	switch what {
	case "resizable", "movable", "closable", "all":
	default:
		fmt.Fprintf(cfg.Stderr, "unknown probe: %s (want resizable, movable, closable, or all)\n", what)
		return ExitError
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		cmp := comparatorFor(ctx, client, cfg, target.ID)

		var out ProbeOutcome
		if what == "resizable" || what == "all" {
			r, err := client.ProbeResizable(ctx, target.ID, cmp)
			if err != nil {
				return nil, fmt.Errorf("probing resizability: %w", err)
			}
			out.Resizable = r
		}
		if what == "movable" || what == "all" {
			m, err := client.ProbeMovable(ctx, target.ID, cmp)
			if err != nil {
				return nil, fmt.Errorf("probing movability: %w", err)
			}
			out.Movable = m
		}
		// The closable probe closes the target, so it only runs when asked
		// for by name.
		if what == "closable" {
			closed, err := client.ProbeClosable(ctx, target.ID)
			if err != nil {
				return nil, fmt.Errorf("probing closability: %w", err)
			}
			out.Closable = &closed
		}
		return out, nil
	})
}

func cmdFPS(cfg *Config, secondsArg string) int {
	seconds, err := strconv.Atoi(secondsArg)
	if err != nil || seconds <= 0 {
		fmt.Fprintf(cfg.Stderr, "invalid duration: %s\n", secondsArg)
		return ExitError
	}

	// The measurement itself needs to fit inside the command timeout.
	if d := time.Duration(seconds) * time.Second; d >= cfg.Timeout {
		cfg.Timeout = d + 5*time.Second
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		rate, err := client.MeasureFrameRate(ctx, target.ID, time.Duration(seconds)*time.Second)
		if err != nil {
			return nil, err
		}
		return FPSResult{
			Frames:    rate.Frames,
			ElapsedMS: rate.Elapsed.Milliseconds(),
			PerSecond: rate.PerSecond,
		}, nil
	})
}

// isoEvalWorld is the isolated world the isoeval command runs in.
const isoEvalWorld = "winprobe_isoeval"

func cmdIsoEval(cfg *Config, expression string) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		contextID, err := client.CreateIsolatedWorld(ctx, target.ID, isoEvalWorld)
		if err != nil {
			return nil, err
		}
		res, err := client.EvalInWorld(ctx, target.ID, contextID, expression)
		if err != nil {
			return nil, err
		}
		return ValueResult{Value: fmt.Sprintf("%v", res.Value), Type: res.Type}, nil
	})
}

func cmdIsolate(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		report, err := client.VerifyIsolation(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return IsolationResult{
			Isolated:         report.Isolated,
			MainSeesIsolated: report.MainSeesIsolated,
			IsolatedSeesMain: report.IsolatedSeesMain,
			SharedDOMVisible: report.SharedDOMVisible,
		}, nil
	})
}
