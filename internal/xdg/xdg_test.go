package xdg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheHomeHonorsEnv(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/custom")
	require.Equal(t, "/var/cache/custom", CacheHome())
}

func TestCacheHomeDefaultsUnderHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/grader")
	require.Equal(t, filepath.Join("/home/grader", ".cache"), CacheHome())
}

func TestAssetsCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/custom")
	require.Equal(t, filepath.Join("/var/cache/custom", "autograder", "assets"), AssetsCacheDir())
}
