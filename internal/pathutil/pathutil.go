// Package pathutil expands user-relative paths in configuration values
// (audit file locations, SQLite DSNs).
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHomePath resolves a leading "~" or "~/" against the user's home
// directory and cleans the result. Empty input stays empty.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return filepath.Clean(p)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Clean(p)
	}
	if p == "~" {
		return filepath.Clean(home)
	}
	return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
}
