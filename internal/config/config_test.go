package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Detector.MaxDepth)
	assert.Contains(t, cfg.Detector.Exclusions, "node_modules")
	assert.Contains(t, cfg.Detector.Exclusions, "bazel-*")
	assert.Equal(t, 5*time.Minute, cfg.Detector.Timeout)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, []string{"json"}, cfg.Upload.Formats)
	assert.False(t, cfg.FailFast)
	assert.Empty(t, l.Used())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
detector:
  max_depth: 3
  excluded: [bazel]
  timeout: 90s
yarn:
  include_dev: true
upload:
  dir: out
  formats: [json, dot]
project:
  name: demo
  version: "1.2"
fail_fast: true
`)
	l := NewLoader(dir)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, path, l.Used())
	assert.Equal(t, 3, cfg.Detector.MaxDepth)
	assert.Equal(t, []string{"bazel"}, cfg.Detector.Excluded)
	assert.Equal(t, 90*time.Second, cfg.Detector.Timeout)
	assert.True(t, cfg.Yarn.IncludeDev)
	assert.Equal(t, []string{"json", "dot"}, cfg.Upload.Formats)
	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, "1.2", cfg.Project.Version)
	assert.True(t, cfg.FailFast)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "detector:\n  max_depth: 3\nbazel:\n  target: //file:target\n")
	t.Setenv("STACKSCAN_DETECTOR_MAX_DEPTH", "5")
	t.Setenv("STACKSCAN_BAZEL_TARGET", "//env:target")

	cfg, err := NewLoader(dir).Set("detector.max_depth", 7).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Detector.MaxDepth, "overrides beat env")
	assert.Equal(t, "//env:target", cfg.Bazel.Target, "env beats file")
}

func TestLoadExplicitFile(t *testing.T) {
	other := t.TempDir()
	path := writeConfig(t, other, "cache:\n  backend: none\n")

	cfg, err := NewLoader(t.TempDir()).WithFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)

	_, err = NewLoader(t.TempDir()).WithFile(filepath.Join(other, "missing.yaml")).Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative depth", func(c *Config) { c.Detector.MaxDepth = -1 }},
		{"zero parallelism", func(c *Config) { c.Detector.Parallelism = 0 }},
		{"bad exclusion", func(c *Config) { c.Detector.Exclusions = []string{"[abc"} }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without url", func(c *Config) { c.Cache.Backend = CacheRedis }},
		{"unknown format", func(c *Config) { c.Upload.Formats = []string{"pdf"} }},
		{"bad url", func(c *Config) { c.Upload.URL = "ftp://collector" }},
		{"version without name", func(c *Config) { c.Project.Version = "1.0" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err))
		})
	}

	assert.NoError(t, Validate(Default()))
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Detector.MaxDepth = -1
	cfg.Cache.Backend = "x"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 problems")
}
