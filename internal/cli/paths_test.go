package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/internal/config"
)

func TestCacheDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
		dir, err := cacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/tmp/custom-cache", appName), dir)
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		dir, err := cacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".cache", appName), dir)
	})
}

func TestFileCacheDirPrefersConfig(t *testing.T) {
	dir, err := fileCacheDir(config.CacheConfig{Dir: "/srv/cache"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/cache", dir)
}

func TestNewResolverPinsConfiguredTools(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "bazelisk")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	cfg := config.Default()
	cfg.Bazel.Path = tool
	cfg.Go.Path = filepath.Join(dir, "missing", "go")
	r, err := newResolver(cfg)
	require.NoError(t, err)
	defer r.Close()

	path, ok := r.Resolve("bazel")
	assert.True(t, ok)
	assert.Equal(t, tool, path)

	_, ok = r.Resolve("go")
	assert.False(t, ok, "a configured path that does not exist is not replaced by a PATH lookup")
}

func TestLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug is filtered at info level")

	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
