// Package xdg resolves XDG base directories for the on-disk caches.
package xdg

import (
	"os"
	"path/filepath"
)

// CacheHome returns XDG_CACHE_HOME, falling back to ~/.cache and finally
// /tmp when no home directory is available.
func CacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return os.TempDir()
	}
	return filepath.Join(home, ".cache")
}

// AssetsCacheDir is the default location for cached runtime bundles.
func AssetsCacheDir() string {
	return filepath.Join(CacheHome(), "autograder", "assets")
}
