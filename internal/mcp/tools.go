package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probeworks/winprobe/internal/display"
	"github.com/probeworks/winprobe/internal/shell"
)

func (s *Server) handleRoundingProne(_ context.Context, _ *mcpsdk.CallToolRequest, args RoundingProneInput) (*mcpsdk.CallToolResult, RoundingProneOutput, error) {
	if args.Scale <= 0 {
		return nil, RoundingProneOutput{}, fmt.Errorf("scale must be positive, got %v", args.Scale)
	}

	prone := display.RoundingProne(args.Scale)
	tolerance := 0
	if prone {
		tolerance = 1
	}

	return nil, RoundingProneOutput{
		Scale:     args.Scale,
		Prone:     prone,
		Tolerance: tolerance,
	}, nil
}

func (s *Server) handleCompareBounds(ctx context.Context, _ *mcpsdk.CallToolRequest, args CompareBoundsInput) (*mcpsdk.CallToolResult, CompareBoundsOutput, error) {
	scale := args.Scale
	if scale == 0 {
		scale = s.cfg.Scale
	}
	if scale == 0 {
		// No explicit or configured scale: read it live from the shell.
		client, err := s.shellClient(ctx)
		if err != nil {
			return nil, CompareBoundsOutput{}, err
		}
		targetID, err := s.resolveTarget(ctx, client, args.TargetID)
		if err != nil {
			return nil, CompareBoundsOutput{}, err
		}
		info, err := client.PrimaryDisplay(ctx, targetID)
		if err != nil {
			return nil, CompareBoundsOutput{}, err
		}
		scale = info.ScaleFactor
	}
	if scale <= 0 {
		return nil, CompareBoundsOutput{}, fmt.Errorf("scale must be positive, got %v", scale)
	}

	if args.Actual.isRect() != args.Expected.isRect() {
		return nil, CompareBoundsOutput{}, fmt.Errorf("actual and expected must have the same shape (both sizes or both rects)")
	}

	cmp := display.FixedComparator(scale)
	tolerance, err := cmp.Tolerance()
	if err != nil {
		return nil, CompareBoundsOutput{}, err
	}

	out := CompareBoundsOutput{Tolerance: tolerance, Scale: scale}
	if err := cmp.Equal(args.Actual.bounds(), args.Expected.bounds()); err != nil {
		out.Mismatch = err.Error()
	} else {
		out.Equal = true
	}
	return nil, out, nil
}

func (s *Server) handleGetWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args GetWindowInput) (*mcpsdk.CallToolResult, GetWindowOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	win, err := client.WindowForTarget(ctx, targetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	return nil, GetWindowOutput{
		WindowID: win.ID,
		X:        win.Bounds.Left,
		Y:        win.Bounds.Top,
		Width:    win.Bounds.Width,
		Height:   win.Bounds.Height,
		State:    string(win.Bounds.WindowState),
	}, nil
}

func (s *Server) handleSetWindowBounds(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetWindowBoundsInput) (*mcpsdk.CallToolResult, GetWindowOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	win, err := client.WindowForTarget(ctx, targetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}
	if win.Bounds.WindowState != shell.WindowStateNormal {
		return nil, GetWindowOutput{}, fmt.Errorf("window is %s; restore it to normal before changing bounds", win.Bounds.WindowState)
	}

	next := win.Bounds
	if args.X != nil {
		next.Left = *args.X
	}
	if args.Y != nil {
		next.Top = *args.Y
	}
	if args.Width > 0 {
		next.Width = args.Width
	}
	if args.Height > 0 {
		next.Height = args.Height
	}
	next.WindowState = ""

	if err := client.SetWindowBounds(ctx, win.ID, next); err != nil {
		return nil, GetWindowOutput{}, err
	}

	applied, err := client.GetWindowBounds(ctx, win.ID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	return nil, GetWindowOutput{
		WindowID: win.ID,
		X:        applied.Left,
		Y:        applied.Top,
		Width:    applied.Width,
		Height:   applied.Height,
		State:    string(applied.WindowState),
	}, nil
}

func (s *Server) handleSetWindowState(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetWindowStateInput) (*mcpsdk.CallToolResult, GetWindowOutput, error) {
	state := shell.WindowState(args.State)
	switch state {
	case shell.WindowStateNormal, shell.WindowStateMinimized, shell.WindowStateMaximized, shell.WindowStateFullscreen:
	default:
		return nil, GetWindowOutput{}, fmt.Errorf("unknown window state %q", args.State)
	}

	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	win, err := client.WindowForTarget(ctx, targetID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	if err := client.SetWindowState(ctx, win.ID, state); err != nil {
		return nil, GetWindowOutput{}, err
	}

	applied, err := client.GetWindowBounds(ctx, win.ID)
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	return nil, GetWindowOutput{
		WindowID: win.ID,
		X:        applied.Left,
		Y:        applied.Top,
		Width:    applied.Width,
		Height:   applied.Height,
		State:    string(applied.WindowState),
	}, nil
}

func (s *Server) handleGetDisplay(ctx context.Context, _ *mcpsdk.CallToolRequest, args GetDisplayInput) (*mcpsdk.CallToolResult, GetDisplayOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, GetDisplayOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, GetDisplayOutput{}, err
	}

	info, err := client.PrimaryDisplay(ctx, targetID)
	if err != nil {
		return nil, GetDisplayOutput{}, err
	}

	return nil, GetDisplayOutput{
		ScaleFactor:   info.ScaleFactor,
		RoundingProne: display.RoundingProne(info.ScaleFactor),
		Bounds:        info.Bounds,
		WorkArea:      info.WorkArea,
	}, nil
}

func (s *Server) handleProbeWindowFlags(ctx context.Context, _ *mcpsdk.CallToolRequest, args ProbeWindowFlagsInput) (*mcpsdk.CallToolResult, ProbeWindowFlagsOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, ProbeWindowFlagsOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, ProbeWindowFlagsOutput{}, err
	}

	cmp := client.Comparator(ctx, targetID)
	if s.cfg.Scale > 0 {
		cmp = display.FixedComparator(s.cfg.Scale)
	}

	resizable, err := client.ProbeResizable(ctx, targetID, cmp)
	if err != nil {
		return nil, ProbeWindowFlagsOutput{}, fmt.Errorf("probing resizability: %w", err)
	}
	movable, err := client.ProbeMovable(ctx, targetID, cmp)
	if err != nil {
		return nil, ProbeWindowFlagsOutput{}, fmt.Errorf("probing movability: %w", err)
	}

	return nil, ProbeWindowFlagsOutput{
		Resizable: resizable.Allowed,
		Movable:   movable.Allowed,
	}, nil
}

func (s *Server) handleMeasureFrameRate(ctx context.Context, _ *mcpsdk.CallToolRequest, args MeasureFrameRateInput) (*mcpsdk.CallToolResult, MeasureFrameRateOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, MeasureFrameRateOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, MeasureFrameRateOutput{}, err
	}

	seconds := args.Seconds
	if seconds <= 0 {
		seconds = 2
	}

	rate, err := client.MeasureFrameRate(ctx, targetID, time.Duration(seconds)*time.Second)
	if err != nil {
		return nil, MeasureFrameRateOutput{}, err
	}

	return nil, MeasureFrameRateOutput{
		Frames:    rate.Frames,
		ElapsedMS: rate.Elapsed.Milliseconds(),
		PerSecond: rate.PerSecond,
	}, nil
}

func (s *Server) handleCheckIsolation(ctx context.Context, _ *mcpsdk.CallToolRequest, args CheckIsolationInput) (*mcpsdk.CallToolResult, CheckIsolationOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, CheckIsolationOutput{}, err
	}
	targetID, err := s.resolveTarget(ctx, client, args.TargetID)
	if err != nil {
		return nil, CheckIsolationOutput{}, err
	}

	report, err := client.VerifyIsolation(ctx, targetID)
	if err != nil {
		return nil, CheckIsolationOutput{}, err
	}

	return nil, CheckIsolationOutput{
		Isolated:         report.Isolated,
		MainSeesIsolated: report.MainSeesIsolated,
		IsolatedSeesMain: report.IsolatedSeesMain,
		SharedDOMVisible: report.SharedDOMVisible,
	}, nil
}

func (s *Server) handleListExtensions(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListExtensionsInput) (*mcpsdk.CallToolResult, ListExtensionsOutput, error) {
	client, err := s.shellClient(ctx)
	if err != nil {
		return nil, ListExtensionsOutput{}, err
	}

	exts, err := client.LoadedExtensions(ctx)
	if err != nil {
		return nil, ListExtensionsOutput{}, err
	}

	out := ListExtensionsOutput{Extensions: make([]ExtensionEntry, 0, len(exts))}
	for _, e := range exts {
		out.Extensions = append(out.Extensions, ExtensionEntry{
			ID:    e.ID,
			Title: e.Title,
			URL:   e.URL,
			Type:  e.Type,
		})
	}
	return nil, out, nil
}
