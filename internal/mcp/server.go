// Package mcp exposes the windowing probes as MCP tools so agents can drive
// a shell under test over stdio.
package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probeworks/winprobe/internal/config"
	"github.com/probeworks/winprobe/internal/shell"
)

const (
	ServerName    = "winprobe"
	ServerVersion = "0.1.0"
)

// Server is the MCP server wrapping a shell connection.
type Server struct {
	mcpServer *mcpsdk.Server
	cfg       *config.Config

	mu     sync.Mutex
	client *shell.Client

	// dialFn is the connection factory; tests replace it.
	dialFn func(ctx context.Context, host string, port int) (*shell.Client, error)
}

// NewServer creates an MCP server that connects to the shell described by
// cfg on first use.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:    cfg,
		dialFn: shell.Connect,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the shell connection if one was opened.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rounding_prone",
		Description: "Classify a display scale factor: whether window geometry comparisons at this factor need a 1-DIP tolerance because the platform rounds physical pixels. Non-integer factors and odd integer factors above 2 are prone.",
	}, s.handleRoundingProne)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "compare_bounds",
		Description: "Compare two bounds values (sizes with width/height, or rects with x/y/width/height) under the scale-factor tolerance rule: exact match on safe factors, per-field tolerance of 1 DIP on rounding-prone factors. Both values must have the same shape.",
	}, s.handleCompareBounds)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Get the bounds and state of the shell window hosting a target.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_bounds",
		Description: "Move and/or resize the shell window hosting a target. Fields left out keep their current values. The window must be in the normal state.",
	}, s.handleSetWindowBounds)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_state",
		Description: "Transition the shell window hosting a target to normal, minimized, maximized, or fullscreen. Cross-state transitions go through normal automatically.",
	}, s.handleSetWindowState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_display",
		Description: "Get the geometry and scale factor of the display hosting a target, plus whether the factor is rounding-prone. The factor is read live from the shell, never cached.",
	}, s.handleGetDisplay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "probe_window_flags",
		Description: "Probe whether the window hosting a target can be resized and moved, by attempting each change, judging the result under the scale-factor tolerance, and restoring the original geometry.",
	}, s.handleProbeWindowFlags)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "measure_frame_rate",
		Description: "Measure a target's achieved rendering frame rate by running a screencast for a few seconds and counting frames by their metadata timestamps.",
	}, s.handleMeasureFrameRate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "check_isolation",
		Description: "Verify that an isolated script world and the page's main world cannot see each other's JavaScript globals while sharing the same DOM.",
	}, s.handleCheckIsolation)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_extensions",
		Description: "List the extension contexts (background pages, service workers) the shell currently has loaded.",
	}, s.handleListExtensions)
}

// shellClient returns the lazily-dialed shell connection.
func (s *Server) shellClient(ctx context.Context) (*shell.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	host := s.cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := s.cfg.Port
	if port == 0 {
		port = 9222
	}

	client, err := s.dialFn(ctx, host, port)
	if err != nil {
		return nil, fmt.Errorf("connecting to shell at %s:%d: %w", host, port, err)
	}
	s.client = client
	return client, nil
}

// resolveTarget picks the target to operate on: the explicit ID, or the
// first page when none is given.
func (s *Server) resolveTarget(ctx context.Context, client *shell.Client, targetID string) (string, error) {
	if targetID != "" {
		return targetID, nil
	}

	pages, err := client.Pages(ctx)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no page targets available")
	}
	return pages[0].ID, nil
}
