package main

import (
	"context"
	"fmt"
	"os"

	"github.com/probeworks/winprobe/internal/extension"
	"github.com/probeworks/winprobe/internal/shell"
)

// ExtensionsResult lists the shell's loaded extension contexts.
type ExtensionsResult struct {
	Extensions []shell.ExtensionInfo `json:"extensions"`
	Count      int                   `json:"count"`
}

// ExtCheckResult reports a manifest validation.
type ExtCheckResult struct {
	Valid    bool   `json:"valid"`
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	Devtools bool   `json:"devtools"`
	Problem  string `json:"problem,omitempty"`
}

// PreloadResult reports an installed preload script.
type PreloadResult struct {
	Identifier string `json:"identifier"`
	World      string `json:"world,omitempty"`
}

func cmdExtensions(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *shell.Client) (interface{}, error) {
		exts, err := client.LoadedExtensions(ctx)
		if err != nil {
			return nil, err
		}
		return ExtensionsResult{Extensions: exts, Count: len(exts)}, nil
	})
}

func cmdExtCheck(cfg *Config, dir string) int {
	m, err := extension.ValidateDir(dir)
	if err != nil {
		// A broken manifest is the command's answer, not a failure.
		return outputResult(cfg, ExtCheckResult{Problem: err.Error()})
	}
	return outputResult(cfg, ExtCheckResult{
		Valid:    true,
		Name:     m.Name,
		Version:  m.Version,
		Devtools: m.IsDevtools(),
	})
}

func cmdPreload(cfg *Config, path, world string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return withClientTarget(cfg, func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error) {
		id, err := client.AddPreloadScript(ctx, target.ID, string(source), world)
		if err != nil {
			return nil, err
		}
		return PreloadResult{Identifier: id, World: world}, nil
	})
}
