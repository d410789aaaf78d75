package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/probeworks/winprobe/internal/config"
	"github.com/probeworks/winprobe/internal/mcp"
	"github.com/probeworks/winprobe/internal/shell/launcher"
)

// LaunchResult reports a launched shell instance.
type LaunchResult struct {
	PID     int    `json:"pid"`
	Port    int    `json:"port"`
	DataDir string `json:"dataDir"`
}

// StatusResult reports whether a shell is reachable.
type StatusResult struct {
	Running  bool   `json:"running"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Browser  string `json:"browser,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

func cmdLaunch(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	headless := fs.Bool("headless", false, "run headless")
	kiosk := fs.Bool("kiosk", false, "launch in kiosk mode")
	width := fs.Int("width", 0, "initial window width")
	height := fs.Int("height", 0, "initial window height")
	x := fs.Int("x", 0, "initial window x position")
	y := fs.Int("y", 0, "initial window y position")
	dataDir := fs.String("data-dir", "", "user data directory (temp dir if empty)")
	url := fs.String("url", "", "initial URL")
	if err := fs.Parse(args); err != nil {
		return ExitError
	}

	hasPos := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "x" || f.Name == "y" {
			hasPos = true
		}
	})

	inst, err := launcher.Launch(launcher.LaunchOptions{
		ShellPath:        cfg.ShellPath,
		Port:             cfg.Port,
		Headless:         *headless,
		DataDir:          *dataDir,
		Extensions:       cfg.Extensions,
		Kiosk:            *kiosk,
		WindowX:          *x,
		WindowY:          *y,
		HasPosition:      hasPos,
		WindowWidth:      *width,
		WindowHeight:     *height,
		ForceScaleFactor: cfg.Scale,
		StartURL:         *url,
	})
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return outputResult(cfg, LaunchResult{PID: inst.PID, Port: inst.Port, DataDir: inst.DataDir})
}

func cmdStatus(cfg *Config) int {
	info, err := launcher.DetectRunning(cfg.Host, cfg.Port)
	if err != nil {
		return outputResult(cfg, StatusResult{Running: false, Host: cfg.Host, Port: cfg.Port})
	}
	return outputResult(cfg, StatusResult{
		Running:  true,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Browser:  info.Browser,
		Protocol: info.Protocol,
	})
}

func cmdMCP(cfg *Config) int {
	srv := mcp.NewServer(&config.Config{
		Host:  cfg.Host,
		Port:  cfg.Port,
		Scale: cfg.Scale,
	})
	defer srv.Close()

	if err := srv.Run(context.Background()); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
