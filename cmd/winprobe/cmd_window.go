package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/probeworks/winprobe/internal/shell"
)

// WindowResult describes a shell window.
type WindowResult struct {
	WindowID int64  `json:"windowId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	State    string `json:"state"`
}

func windowResult(win *shell.Window) WindowResult {
	return WindowResult{
		WindowID: win.ID,
		X:        win.Bounds.Left,
		Y:        win.Bounds.Top,
		Width:    win.Bounds.Width,
		Height:   win.Bounds.Height,
		State:    string(win.Bounds.WindowState),
	}
}

func cmdWindow(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		win, err := client.WindowForTarget(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return windowResult(win), nil
	})
}

func cmdMove(cfg *Config, xs, ys string) int {
	x, err := strconv.Atoi(xs)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "invalid x: %s\n", xs)
		return ExitError
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "invalid y: %s\n", ys)
		return ExitError
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		win, err := client.WindowForTarget(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if err := client.MoveWindow(ctx, win.ID, x, y); err != nil {
			return nil, err
		}
		applied, err := client.GetWindowBounds(ctx, win.ID)
		if err != nil {
			return nil, err
		}
		return windowResult(&shell.Window{ID: win.ID, Bounds: *applied}), nil
	})
}

func cmdResize(cfg *Config, ws, hs string) int {
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		fmt.Fprintf(cfg.Stderr, "invalid width: %s\n", ws)
		return ExitError
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		fmt.Fprintf(cfg.Stderr, "invalid height: %s\n", hs)
		return ExitError
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		win, err := client.WindowForTarget(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if err := client.ResizeWindow(ctx, win.ID, w, h); err != nil {
			return nil, err
		}
		applied, err := client.GetWindowBounds(ctx, win.ID)
		if err != nil {
			return nil, err
		}
		return windowResult(&shell.Window{ID: win.ID, Bounds: *applied}), nil
	})
}

func cmdState(cfg *Config, state string) int {
	st := shell.WindowState(state)
	switch st {
	case shell.WindowStateNormal, shell.WindowStateMinimized, shell.WindowStateMaximized, shell.WindowStateFullscreen:
	default:
		fmt.Fprintf(cfg.Stderr, "unknown window state: %s\n", state)
		return ExitError
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		win, err := client.WindowForTarget(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if err := client.SetWindowState(ctx, win.ID, st); err != nil {
			return nil, err
		}
		applied, err := client.GetWindowBounds(ctx, win.ID)
		if err != nil {
			return nil, err
		}
		return windowResult(&shell.Window{ID: win.ID, Bounds: *applied}), nil
	})
}
