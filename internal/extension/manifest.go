// Package extension parses and validates devtools extension manifests so a
// directory can be checked before the shell is asked to load it.
package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFileName is the file the shell reads from an extension directory.
const ManifestFileName = "manifest.json"

// Manifest is the subset of an extension manifest the harness cares about.
type Manifest struct {
	ManifestVersion int         `json:"manifest_version"`
	Name            string      `json:"name"`
	Version         string      `json:"version"`
	Description     string      `json:"description,omitempty"`
	DevtoolsPage    string      `json:"devtools_page,omitempty"`
	Background      *Background `json:"background,omitempty"`
	Permissions     []string    `json:"permissions,omitempty"`
}

// Background describes an extension's background context: a service worker
// (manifest v3) or a page/scripts (manifest v2).
type Background struct {
	ServiceWorker string   `json:"service_worker,omitempty"`
	Page          string   `json:"page,omitempty"`
	Scripts       []string `json:"scripts,omitempty"`
}

// Parse decodes a manifest from JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// ParseFile reads and decodes a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Validate checks the fields the shell requires before it will load the
// extension.
func (m *Manifest) Validate() error {
	if m.ManifestVersion != 2 && m.ManifestVersion != 3 {
		return fmt.Errorf("unsupported manifest_version %d (want 2 or 3)", m.ManifestVersion)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest missing name")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest missing version")
	}
	if m.DevtoolsPage != "" {
		if strings.Contains(m.DevtoolsPage, "://") {
			return fmt.Errorf("devtools_page must be a relative path, got %q", m.DevtoolsPage)
		}
		if strings.HasPrefix(m.DevtoolsPage, "/") {
			return fmt.Errorf("devtools_page must not be absolute, got %q", m.DevtoolsPage)
		}
	}
	if m.ManifestVersion == 3 && m.Background != nil && m.Background.Page != "" {
		return fmt.Errorf("manifest v3 background must use service_worker, not page")
	}
	return nil
}

// IsDevtools reports whether the extension contributes a devtools panel.
func (m *Manifest) IsDevtools() bool {
	return m.DevtoolsPage != ""
}

// ValidateDir checks that dir is a loadable extension directory: it must
// contain a valid manifest, and any devtools page it names must exist.
func ValidateDir(dir string) (*Manifest, error) {
	m, err := ParseFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.DevtoolsPage != "" {
		page := filepath.Join(dir, filepath.FromSlash(m.DevtoolsPage))
		if _, err := os.Stat(page); err != nil {
			return nil, fmt.Errorf("devtools_page %q not found in %s", m.DevtoolsPage, dir)
		}
	}
	return m, nil
}
