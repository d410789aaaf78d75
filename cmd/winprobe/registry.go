package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name     string
	Desc     string
	Category string
	Run      func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	// Window geometry
	"window": {Name: "window", Desc: "Show the window hosting the target", Category: "Window geometry", Run: func(cfg *Config, args []string) int { return cmdWindow(cfg) }},
	"move": {Name: "move", Desc: "Move the window to x,y", Category: "Window geometry", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: winprobe move <x> <y>")
		}
		return cmdMove(cfg, args[0], args[1])
	}},
	"resize": {Name: "resize", Desc: "Resize the window to width x height", Category: "Window geometry", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: winprobe resize <width> <height>")
		}
		return cmdResize(cfg, args[0], args[1])
	}},
	"state": {Name: "state", Desc: "Set the window state", Category: "Window geometry", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe state <normal|minimized|maximized|fullscreen>")
		}
		return cmdState(cfg, args[0])
	}},
	"minimize":   {Name: "minimize", Desc: "Minimize the window", Category: "Window geometry", Run: func(cfg *Config, args []string) int { return cmdState(cfg, "minimized") }},
	"maximize":   {Name: "maximize", Desc: "Maximize the window", Category: "Window geometry", Run: func(cfg *Config, args []string) int { return cmdState(cfg, "maximized") }},
	"fullscreen": {Name: "fullscreen", Desc: "Make the window fullscreen", Category: "Window geometry", Run: func(cfg *Config, args []string) int { return cmdState(cfg, "fullscreen") }},
	"restore":    {Name: "restore", Desc: "Restore the window to normal", Category: "Window geometry", Run: func(cfg *Config, args []string) int { return cmdState(cfg, "normal") }},

	// Probes
	"probe": {Name: "probe", Desc: "Probe window capabilities (resizable, movable, closable, all)", Category: "Probe", Run: func(cfg *Config, args []string) int {
		what := "all"
		if len(args) > 0 {
			what = args[0]
		}
		return cmdProbe(cfg, what)
	}},
	"isolate": {Name: "isolate", Desc: "Verify isolated world / main world separation", Category: "Probe", Run: func(cfg *Config, args []string) int { return cmdIsolate(cfg) }},
	"isoeval": {Name: "isoeval", Desc: "Evaluate JS in an isolated world", Category: "Probe", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe isoeval <expression>")
		}
		return cmdIsoEval(cfg, strings.Join(args, " "))
	}},
	"fps": {Name: "fps", Desc: "Measure achieved frame rate via screencast", Category: "Probe", Run: func(cfg *Config, args []string) int {
		seconds := "2"
		if len(args) > 0 {
			seconds = args[0]
		}
		return cmdFPS(cfg, seconds)
	}},

	// Display & compare
	"display": {Name: "display", Desc: "Show display geometry and scale factor", Category: "Display & compare", Run: func(cfg *Config, args []string) int { return cmdDisplay(cfg) }},
	"scale":   {Name: "scale", Desc: "Show the display scale factor", Category: "Display & compare", Run: func(cfg *Config, args []string) int { return cmdScale(cfg) }},
	"prone": {Name: "prone", Desc: "Classify a scale factor as rounding-prone", Category: "Display & compare", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe prone <scale>")
		}
		return cmdProne(cfg, args[0])
	}},
	"compare": {Name: "compare", Desc: "Compare two bounds under the scale tolerance", Category: "Display & compare", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: winprobe compare <actual> <expected>  (WxH or X,Y,WxH)")
		}
		return cmdCompare(cfg, args[0], args[1])
	}},

	// Extensions
	"extensions": {Name: "extensions", Desc: "List loaded extension contexts", Category: "Extensions", Run: func(cfg *Config, args []string) int { return cmdExtensions(cfg) }},
	"extcheck": {Name: "extcheck", Desc: "Validate an unpacked extension directory", Category: "Extensions", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe extcheck <dir>")
		}
		return cmdExtCheck(cfg, args[0])
	}},
	"preload": {Name: "preload", Desc: "Install a preload script into an isolated world", Category: "Extensions", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe preload <file> [world]")
		}
		world := ""
		if len(args) > 1 {
			world = args[1]
		}
		return cmdPreload(cfg, args[0], world)
	}},

	// Navigation
	"goto": {Name: "goto", Desc: "Navigate to a URL and wait for load", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe goto <url>")
		}
		return cmdGoto(cfg, args[0])
	}},
	"reload": {Name: "reload", Desc: "Reload the page", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int { return cmdReload(cfg, args) }},
	"new": {Name: "new", Desc: "Open a new tab", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int {
		url := ""
		if len(args) > 0 {
			url = args[0]
		}
		return cmdNew(cfg, url)
	}},
	"close":   {Name: "close", Desc: "Close the current tab", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int { return cmdClose(cfg) }},
	"tabs":    {Name: "tabs", Desc: "List open tabs", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int { return cmdTabs(cfg) }},
	"title":   {Name: "title", Desc: "Get page title", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int { return cmdTitle(cfg) }},
	"eval": {Name: "eval", Desc: "Evaluate a JS expression in the page", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: winprobe eval <expression>")
		}
		return cmdEval(cfg, strings.Join(args, " "))
	}},
	"screenshot": {Name: "screenshot", Desc: "Capture a screenshot to a file", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int {
		path := "screenshot.png"
		if len(args) > 0 {
			path = args[0]
		}
		return cmdScreenshot(cfg, path)
	}},
	"version": {Name: "version", Desc: "Show shell version", Category: "Navigate & manage tabs", Run: func(cfg *Config, args []string) int { return cmdVersion(cfg) }},

	// Shell lifecycle
	"launch": {Name: "launch", Desc: "Launch a shell with the devtools port open", Category: "Shell", Run: func(cfg *Config, args []string) int { return cmdLaunch(cfg, args) }},
	"status": {Name: "status", Desc: "Check whether a shell is listening", Category: "Shell", Run: func(cfg *Config, args []string) int { return cmdStatus(cfg) }},

	// Utility
	"mcp": {Name: "mcp", Desc: "Run the MCP server on stdio", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdMCP(cfg) }},
}

func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

var categoryOrder = []string{
	"Window geometry",
	"Probe",
	"Display & compare",
	"Extensions",
	"Navigate & manage tabs",
	"Shell",
	"Utility",
}

func commandsByCategory() []struct {
	Category string
	Commands []CommandInfo
} {
	grouped := make(map[string][]CommandInfo)
	for _, cmd := range commands {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}

	var result []struct {
		Category string
		Commands []CommandInfo
	}

	for _, cat := range categoryOrder {
		cmds := grouped[cat]
		if len(cmds) == 0 {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		result = append(result, struct {
			Category string
			Commands []CommandInfo
		}{Category: cat, Commands: cmds})
	}

	return result
}

// printBriefUsage prints the usage message with commands grouped by category.
func printBriefUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: winprobe [flags] <command>")
	fmt.Fprintln(cfg.Stderr)

	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stderr, "  %s:\n", group.Category)
		names := make([]string, len(group.Commands))
		for i, cmd := range group.Commands {
			names[i] = cmd.Name
		}
		fmt.Fprintf(cfg.Stderr, "    %s\n", strings.Join(names, ", "))
		fmt.Fprintln(cfg.Stderr)
	}

	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}

// printFullCommandList prints every command with its description.
func printFullCommandList(cfg *Config) {
	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stdout, "%s:\n", group.Category)
		for _, cmd := range group.Commands {
			fmt.Fprintf(cfg.Stdout, "  %-12s %s\n", cmd.Name, cmd.Desc)
		}
		fmt.Fprintln(cfg.Stdout)
	}
}
