package shell

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// LoadedExtensions lists the extension contexts the shell currently has
// running, derived from its chrome-extension:// targets. Background pages
// and service workers both count; one extension can contribute several
// contexts.
func (c *Client) LoadedExtensions(ctx context.Context) ([]ExtensionInfo, error) {
	targets, err := c.Targets(ctx)
	if err != nil {
		return nil, err
	}

	exts := make([]ExtensionInfo, 0)
	for _, t := range targets {
		if !strings.HasPrefix(t.URL, "chrome-extension://") {
			continue
		}

		id, err := extensionID(t.URL)
		if err != nil {
			continue
		}

		exts = append(exts, ExtensionInfo{
			ID:    id,
			Title: t.Title,
			URL:   t.URL,
			Type:  t.Type,
		})
	}

	return exts, nil
}

// ExtensionLoaded reports whether an extension with the given ID has a
// running context.
func (c *Client) ExtensionLoaded(ctx context.Context, id string) (bool, error) {
	exts, err := c.LoadedExtensions(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range exts {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// extensionID extracts the extension ID (the host part) from a
// chrome-extension:// URL.
func extensionID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing extension URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("extension URL %q has no host", rawURL)
	}
	return u.Host, nil
}
