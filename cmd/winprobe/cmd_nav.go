package main

import (
	"context"
	"fmt"
	"os"

	"github.com/probeworks/winprobe/internal/shell"
)

// TitleResult holds a page title.
type TitleResult struct {
	Title string `json:"title"`
}

// ValueResult holds an evaluated expression's value as text.
type ValueResult struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// TabsResult lists open page targets.
type TabsResult struct {
	Tabs []shell.TargetInfo `json:"tabs"`
}

// NewTabResult reports a newly opened tab.
type NewTabResult struct {
	TargetID string `json:"targetId"`
	URL      string `json:"url"`
}

// ClosedResult reports a closed tab.
type ClosedResult struct {
	TargetID string `json:"targetId"`
	Closed   bool   `json:"closed"`
}

// GotoResult reports a completed navigation.
type GotoResult struct {
	URL       string `json:"url"`
	FrameID   string `json:"frameId,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// ScreenshotResult reports a captured screenshot.
type ScreenshotResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func cmdGoto(cfg *Config, url string) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		res, err := client.NavigateAndWait(ctx, target.ID, url)
		if err != nil {
			return nil, err
		}
		return GotoResult{URL: res.URL, FrameID: res.FrameID, ErrorText: res.ErrorText}, nil
	})
}

func cmdReload(cfg *Config, args []string) int {
	ignoreCache := len(args) > 0 && args[0] == "--hard"
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		if err := client.Reload(ctx, target.ID, ignoreCache); err != nil {
			return nil, err
		}
		return GotoResult{URL: target.URL}, nil
	})
}

func cmdNew(cfg *Config, url string) int {
	return withClient(cfg, func(ctx context.Context, client *shell.Client) (interface{}, error) {
		id, err := client.NewTab(ctx, url)
		if err != nil {
			return nil, err
		}
		if url == "" {
			url = "about:blank"
		}
		return NewTabResult{TargetID: id, URL: url}, nil
	})
}

func cmdClose(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		if err := client.CloseTarget(ctx, target.ID); err != nil {
			return nil, err
		}
		return ClosedResult{TargetID: target.ID, Closed: true}, nil
	})
}

func cmdTabs(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *shell.Client) (interface{}, error) {
		pages, err := client.Pages(ctx)
		if err != nil {
			return nil, err
		}
		return TabsResult{Tabs: pages}, nil
	})
}

func cmdTitle(cfg *Config) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		title, err := client.GetTitle(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return TitleResult{Title: title}, nil
	})
}

func cmdEval(cfg *Config, expression string) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		res, err := client.Eval(ctx, target.ID, expression)
		if err != nil {
			return nil, err
		}
		return ValueResult{Value: fmt.Sprintf("%v", res.Value), Type: res.Type}, nil
	})
}

func cmdScreenshot(cfg *Config, path string) int {
	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		data, err := client.Screenshot(ctx, target.ID, shell.ScreenshotOptions{Format: "png"})
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		return ScreenshotResult{Path: path, Bytes: len(data)}, nil
	})
}

func cmdVersion(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *shell.Client) (interface{}, error) {
		return client.Version(ctx)
	})
}
