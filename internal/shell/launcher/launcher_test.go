package launcher

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestFindShell_ExplicitPath(t *testing.T) {
	t.Parallel()

	// If an explicit path is given and exists, use it
	path := FindShell("/bin/sh")
	if path != "/bin/sh" {
		t.Errorf("FindShell with explicit path: want /bin/sh, got %s", path)
	}
}

func TestFindShell_ExplicitPath_NotFound(t *testing.T) {
	t.Parallel()

	path := FindShell("/nonexistent/shell")
	if path != "" {
		t.Errorf("FindShell with nonexistent explicit path: want empty, got %s", path)
	}
}

func TestBuildArgs_Defaults(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{Port: 9222}, "/tmp/data")

	assertHasArg(t, args, "--remote-debugging-port=9222")
	assertHasArg(t, args, "--user-data-dir=/tmp/data")
	assertHasArg(t, args, "--disable-extensions")
	if args[len(args)-1] != "about:blank" {
		t.Errorf("expected about:blank as final arg, got %s", args[len(args)-1])
	}
	for _, a := range args {
		if strings.HasPrefix(a, "--headless") {
			t.Errorf("unexpected headless flag: %s", a)
		}
	}
}

func TestBuildArgs_Headless(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{Port: 9222, Headless: true}, "/tmp/data")

	if args[0] != "--headless=new" {
		t.Errorf("expected --headless=new first, got %s", args[0])
	}
}

func TestBuildArgs_Extensions(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{
		Port:       9222,
		Extensions: []string{"/ext/devtool", "/ext/helper"},
	}, "/tmp/data")

	assertHasArg(t, args, "--load-extension=/ext/devtool,/ext/helper")
	for _, a := range args {
		if a == "--disable-extensions" {
			t.Error("--disable-extensions must not appear when extensions are loaded")
		}
	}
}

func TestBuildArgs_WindowGeometry(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{
		Port:         9222,
		WindowX:      100,
		WindowY:      50,
		HasPosition:  true,
		WindowWidth:  800,
		WindowHeight: 600,
	}, "/tmp/data")

	assertHasArg(t, args, "--window-position=100,50")
	assertHasArg(t, args, "--window-size=800,600")
}

func TestBuildArgs_ZeroPosition(t *testing.T) {
	t.Parallel()

	// 0,0 is a real position; HasPosition distinguishes it from unset.
	args := BuildArgs(LaunchOptions{Port: 9222, HasPosition: true}, "/tmp/data")
	assertHasArg(t, args, "--window-position=0,0")
}

func TestBuildArgs_KioskAndScale(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{
		Port:             9222,
		Kiosk:            true,
		ForceScaleFactor: 1.5,
	}, "/tmp/data")

	assertHasArg(t, args, "--kiosk")
	assertHasArg(t, args, "--force-device-scale-factor=1.5")
}

func TestBuildArgs_StartURL(t *testing.T) {
	t.Parallel()

	args := BuildArgs(LaunchOptions{Port: 9222, StartURL: "app://main"}, "/tmp/data")
	if args[len(args)-1] != "app://main" {
		t.Errorf("expected app://main as final arg, got %s", args[len(args)-1])
	}
}

func assertHasArg(t *testing.T, args []string, want string) {
	t.Helper()
	for _, a := range args {
		if a == want {
			return
		}
	}
	t.Errorf("expected %q in args, got %v", want, args)
}

func TestIsPortOpen_ClosedPort(t *testing.T) {
	t.Parallel()

	// Port 19999 should not be open
	if IsPortOpen("localhost", 19999) {
		t.Error("expected port 19999 to be closed")
	}
}

func TestWaitForPort_Timeout(t *testing.T) {
	t.Parallel()

	err := WaitForPort("localhost", 19999, 100*time.Millisecond)
	if err == nil {
		t.Error("expected timeout error for closed port")
	}
}

func TestLaunch_InvalidShellPath(t *testing.T) {
	t.Parallel()

	opts := LaunchOptions{
		ShellPath: "/nonexistent/shell",
		Port:      19877,
		Headless:  true,
	}

	_, err := Launch(opts)
	if err == nil {
		t.Error("expected error for invalid shell path")
	}
}

func TestLaunchAndStop(t *testing.T) {
	t.Parallel()

	shellPath := FindShell("")
	if shellPath == "" {
		t.Skip("no shell binary found on this system")
	}

	opts := LaunchOptions{
		ShellPath: shellPath,
		Port:      19876,
		Headless:  true,
	}

	inst, err := Launch(opts)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer inst.Stop()

	if !IsPortOpen("localhost", 19876) {
		t.Error("port should be open after launch")
	}

	if err := inst.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	// Give it a moment to release the port
	time.Sleep(200 * time.Millisecond)

	if IsPortOpen("localhost", 19876) {
		t.Error("port should be closed after stop")
	}
}

func TestLaunch_CustomDataDir(t *testing.T) {
	t.Parallel()

	shellPath := FindShell("")
	if shellPath == "" {
		t.Skip("no shell binary found on this system")
	}

	dataDir, err := os.MkdirTemp("", "winprobe-launcher-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dataDir)

	opts := LaunchOptions{
		ShellPath: shellPath,
		Port:      19878,
		Headless:  true,
		DataDir:   dataDir,
	}

	inst, err := Launch(opts)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer inst.Stop()

	// Data dir should not be cleaned up by Stop when user-provided
	inst.Stop()
	if _, err := os.Stat(dataDir); err != nil {
		t.Error("user-provided data dir should not be removed on stop")
	}
}
