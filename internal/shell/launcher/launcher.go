// Package launcher discovers and launches Chromium-based shell binaries
// with the devtools endpoint enabled, and manages their lifecycle.
package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// LaunchOptions configures shell launching.
type LaunchOptions struct {
	ShellPath        string   // Path to the shell binary (auto-detected if empty)
	Port             int      // Devtools protocol port
	Headless         bool     // Run headless
	DataDir          string   // User data directory (temp dir created if empty)
	Extensions       []string // Unpacked extension directories to load
	Kiosk            bool     // Launch in kiosk (borderless fullscreen) mode
	WindowX          int      // Initial window position (used when HasPosition)
	WindowY          int
	HasPosition      bool
	WindowWidth      int // Initial window size (used when non-zero)
	WindowHeight     int
	ForceScaleFactor float64 // Force a device scale factor (0 = display default)
	StartURL         string  // Initial URL (about:blank if empty)
}

// Instance represents a running shell process.
type Instance struct {
	cmd      *exec.Cmd
	Port     int
	PID      int
	DataDir  string
	ownsData bool // true if we created the data dir and should clean it up
}

// FindShell locates a shell binary. If shellPath is non-empty and exists, it
// is returned directly. Otherwise, searches PATH and known install locations.
func FindShell(shellPath string) string {
	if shellPath != "" {
		if _, err := os.Stat(shellPath); err == nil {
			return shellPath
		}
		return ""
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// BuildArgs renders launch options into command-line arguments. dataDir must
// be the resolved data directory (Launch fills in a temp dir when
// opts.DataDir is empty).
func BuildArgs(opts LaunchOptions, dataDir string) []string {
	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-background-networking",
		"--disable-sync",
		"--mute-audio",
		"--no-first-run",
		"--disable-default-apps",
		fmt.Sprintf("--remote-debugging-port=%d", opts.Port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
	}

	if opts.Headless {
		args = append([]string{"--headless=new"}, args...)
	}
	if len(opts.Extensions) > 0 {
		args = append(args, "--load-extension="+strings.Join(opts.Extensions, ","))
	} else {
		args = append(args, "--disable-extensions")
	}
	if opts.Kiosk {
		args = append(args, "--kiosk")
	}
	if opts.HasPosition {
		args = append(args, fmt.Sprintf("--window-position=%d,%d", opts.WindowX, opts.WindowY))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ForceScaleFactor > 0 {
		args = append(args, fmt.Sprintf("--force-device-scale-factor=%g", opts.ForceScaleFactor))
	}

	url := opts.StartURL
	if url == "" {
		url = "about:blank"
	}
	args = append(args, url)

	return args
}

// IsPortOpen checks if a TCP port is accepting connections.
func IsPortOpen(host string, port int) bool {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForPort waits for a TCP port to become available.
func WaitForPort(host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
		case <-ticker.C:
			if IsPortOpen(host, port) {
				return nil
			}
		}
	}
}

// Launch starts a shell process with the given options.
func Launch(opts LaunchOptions) (*Instance, error) {
	shellPath := FindShell(opts.ShellPath)
	if shellPath == "" {
		return nil, fmt.Errorf("shell binary not found")
	}

	ownsData := false
	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = os.MkdirTemp("", "winprobe-shell-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		ownsData = true
	}

	cmd := exec.Command(shellPath, BuildArgs(opts, dataDir)...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		if ownsData {
			os.RemoveAll(dataDir)
		}
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	inst := &Instance{
		cmd:      cmd,
		Port:     opts.Port,
		PID:      cmd.Process.Pid,
		DataDir:  dataDir,
		ownsData: ownsData,
	}

	if err := WaitForPort("localhost", opts.Port, 30*time.Second); err != nil {
		inst.Stop()
		return nil, fmt.Errorf("shell failed to start: %w", err)
	}

	return inst, nil
}

// ShellInfo contains version information from a running shell.
type ShellInfo struct {
	Browser  string `json:"Browser"`
	Protocol string `json:"Protocol-Version"`
	V8       string `json:"V8-Version"`
	WebKit   string `json:"WebKit-Version"`
}

// DetectRunning checks if a shell devtools port is responding and returns
// version info.
func DetectRunning(host string, port int) (*ShellInfo, error) {
	url := fmt.Sprintf("http://%s/json/version", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("shell not reachable at %s:%d: %w", host, port, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var info ShellInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parsing version info: %w", err)
	}
	return &info, nil
}

// Stop terminates the shell process and cleans up.
func (inst *Instance) Stop() error {
	if inst.cmd != nil && inst.cmd.Process != nil {
		inst.cmd.Process.Kill()
		inst.cmd.Wait()

		// Kill orphaned child processes
		if inst.DataDir != "" {
			killCmd := exec.Command("pkill", "-9", "-f", inst.DataDir)
			killCmd.Run()
		}
		inst.cmd = nil
	}
	if inst.ownsData && inst.DataDir != "" {
		time.Sleep(100 * time.Millisecond)
		os.RemoveAll(inst.DataDir)
		inst.DataDir = ""
	}
	return nil
}
