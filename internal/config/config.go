// Package config loads the winprobe configuration file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Zero values mean "unset"; the CLI
// layers defaults, this file, environment, and flags in that order.
type Config struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	TimeoutSec int      `yaml:"timeout"`
	Output     string   `yaml:"output"`
	ShellPath  string   `yaml:"shell_path"`
	Extensions []string `yaml:"extensions"`
	Scale      float64  `yaml:"scale"` // fixed scale factor override (0 = query the shell)
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winprobe", "config.yaml"), nil
}

// Load reads the config from the standard location. A missing file is not
// an error; it yields an empty config.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config from an explicit path. A missing file yields
// an empty config; a malformed one is an error.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	var cfg Config
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Validate rejects values that could not have come from a working setup.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TimeoutSec < 0 {
		return fmt.Errorf("timeout %d must not be negative", c.TimeoutSec)
	}
	if c.Scale < 0 {
		return fmt.Errorf("scale %v must not be negative", c.Scale)
	}
	switch c.Output {
	case "", "json", "ndjson", "text":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	return nil
}

// decodeStrict parses YAML, rejecting unknown keys so typos surface instead
// of being silently ignored.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to parse yaml: %w", err)
	}
	return nil
}
