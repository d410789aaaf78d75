package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"

	"github.com/probeworks/winprobe/internal/config"
	"github.com/probeworks/winprobe/internal/display"
	"github.com/probeworks/winprobe/internal/shell"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
)

// Config holds the CLI configuration.
type Config struct {
	Port    int
	Host    string
	Timeout time.Duration
	Output  string // json, ndjson, text ("" = auto by tty)
	Target  string // target index or ID
	Scale   float64 // fixed scale factor override (0 = query the shell)

	ShellPath  string
	Extensions []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the built-in defaults. The config file, environment
// variables, and flags are layered on later.
func DefaultConfig() *Config {
	return &Config{
		Port:    9222,
		Host:    "localhost",
		Timeout: 10 * time.Second,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	port    int
	host    string
	timeout time.Duration
	output  string
	target  string
	scale   float64
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	fs := flag.NewFlagSet("winprobe", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.IntVar(&fv.port, "port", cfg.Port, "shell devtools port (env: WINPROBE_PORT)")
	fs.StringVar(&fv.host, "host", cfg.Host, "shell devtools host (env: WINPROBE_HOST)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "command timeout")
	fs.StringVar(&fv.output, "output", cfg.Output, "output format: json, ndjson, text (default: text on a terminal, json otherwise)")
	fs.StringVar(&fv.target, "target", cfg.Target, "target page (index or ID)")
	fs.Float64Var(&fv.scale, "scale", cfg.Scale, "assume a fixed display scale factor instead of querying the shell")
	configPath := fs.String("config", "", "config file path (default: ~/.config/winprobe/config.yaml)")
	helpCommands := fs.Bool("help-commands", false, "list all commands with descriptions")

	fs.Usage = func() { printBriefUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	// Track which flags were explicitly set on the command line
	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < config file < env vars < CLI flags
	if code := applyConfigFile(cfg, *configPath); code != -1 {
		return code
	}
	applyEnvVars(cfg, explicitFlags)
	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	if cfg.Output == "" {
		cfg.Output = defaultOutputFormat(cfg.Stdout)
	}

	if *helpCommands {
		printFullCommandList(cfg)
		return ExitSuccess
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		printBriefUsage(cfg, fs)
		return ExitError
	}

	cmd := remaining[0]

	info, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", cmd)
		return ExitError
	}
	return info.Run(cfg, remaining[1:])
}

// applyConfigFile loads the YAML config file and applies it to cfg.
// Returns -1 if successful, or an exit code on error.
func applyConfigFile(cfg *Config, path string) int {
	var fc *config.Config
	var err error
	if path != "" {
		fc, err = config.LoadFromPath(path)
	} else {
		fc, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.TimeoutSec != 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSec) * time.Second
	}
	if fc.Output != "" {
		cfg.Output = fc.Output
	}
	if fc.ShellPath != "" {
		cfg.ShellPath = fc.ShellPath
	}
	if len(fc.Extensions) > 0 {
		cfg.Extensions = fc.Extensions
	}
	if fc.Scale != 0 {
		cfg.Scale = fc.Scale
	}
	return -1
}

// applyEnvVars applies environment variables to cfg, but only for fields
// not already set by explicit CLI flags.
func applyEnvVars(cfg *Config, explicit map[string]bool) {
	if !explicit["port"] {
		if v := os.Getenv("WINPROBE_PORT"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				cfg.Port = i
			}
		}
	}
	if !explicit["host"] {
		if v := os.Getenv("WINPROBE_HOST"); v != "" {
			cfg.Host = v
		}
	}
}

// reapplyExplicitFlags re-applies flag values that were explicitly set on
// the command line, since config file loading may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["target"] {
		cfg.Target = fv.target
	}
	if explicit["scale"] {
		cfg.Scale = fv.scale
	}
}

// defaultOutputFormat picks text for terminals and json for pipes.
func defaultOutputFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}

// resolveTarget resolves the target page from cfg.Target.
// Empty means the first page; a number is an index into the pages list;
// anything else is treated as a target ID.
func resolveTarget(ctx context.Context, client *shell.Client, cfg *Config) (*shell.TargetInfo, error) {
	pages, err := client.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages available")
	}

	if cfg.Target == "" {
		return &pages[0], nil
	}

	if idx, err := strconv.Atoi(cfg.Target); err == nil {
		if idx < 0 || idx >= len(pages) {
			return nil, fmt.Errorf("invalid target index: %d (have %d pages)", idx, len(pages))
		}
		return &pages[idx], nil
	}

	for i := range pages {
		if pages[i].ID == cfg.Target {
			return &pages[i], nil
		}
	}

	return nil, fmt.Errorf("invalid target: %s (not found)", cfg.Target)
}

// comparatorFor returns the bounds comparator to judge geometry with: a
// fixed one when the scale is pinned by config, otherwise one that reads
// the scale live from the target's display on every judgement.
func comparatorFor(ctx context.Context, client *shell.Client, cfg *Config, targetID string) display.Comparator {
	if cfg.Scale > 0 {
		return display.FixedComparator(cfg.Scale)
	}
	return client.Comparator(ctx, targetID)
}

// withClient executes a function with a connected shell client.
func withClient(cfg *Config, fn func(ctx context.Context, client *shell.Client) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := shell.Connect(ctx, cfg.Host, cfg.Port)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer client.Close()

	result, err := fn(ctx, client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(cfg.Stderr, "error: timeout")
			return ExitTimeout
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return outputResult(cfg, result)
}

// withClientTarget executes a function with a connected shell client and
// resolved target.
func withClientTarget(cfg *Config, fn func(ctx context.Context, client *shell.Client, target *shell.TargetInfo) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := shell.Connect(ctx, cfg.Host, cfg.Port)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer client.Close()

	target, err := resolveTarget(ctx, client, cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	result, err := fn(ctx, client, target)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(cfg.Stderr, "error: timeout")
			return ExitTimeout
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return outputResult(cfg, result)
}
