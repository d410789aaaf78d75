// Package testutil provides helpers for integration tests that need a live
// shell process.
package testutil

import (
	"fmt"
	"net"

	"github.com/probeworks/winprobe/internal/shell/launcher"
)

// ShellInstance is a running shell started for a test.
type ShellInstance struct {
	inst *launcher.Instance
	Port int
}

// StartShell starts a headless shell on a free port. Returns an instance
// that must be stopped with Stop().
func StartShell(extensions ...string) (*ShellInstance, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}

	inst, err := launcher.Launch(launcher.LaunchOptions{
		Port:       port,
		Headless:   true,
		Extensions: extensions,
	})
	if err != nil {
		return nil, err
	}

	return &ShellInstance{inst: inst, Port: port}, nil
}

// Stop terminates the shell and cleans up its data directory.
func (s *ShellInstance) Stop() error {
	return s.inst.Stop()
}

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
