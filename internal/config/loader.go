package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration for one scanned root.
type Loader struct {
	rootDir   string
	file      string
	overrides map[string]any
}

// NewLoader creates a loader that looks for FileName in rootDir.
func NewLoader(rootDir string) *Loader {
	return &Loader{rootDir: rootDir, overrides: make(map[string]any)}
}

// WithFile reads the given file instead of looking in the root.
// A missing explicit file is an error.
func (l *Loader) WithFile(path string) *Loader {
	l.file = path
	return l
}

// Set overrides key with the highest priority. The CLI uses it for flags
// the user passed explicitly.
func (l *Loader) Set(key string, value any) *Loader {
	l.overrides[key] = value
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Overrides (command-line flags)
// 2. Environment variables (STACKSCAN_*)
// 3. Config file (.stackscan.yaml)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.AddConfigPath(l.rootDir)
	}

	// Replace . with _ in env var names (e.g., STACKSCAN_DETECTOR_MAX_DEPTH)
	v.SetEnvPrefix("STACKSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for k, val := range l.overrides {
		v.Set(k, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Used returns the config file a load would read, or "" when none exists.
func (l *Loader) Used() string {
	if l.file != "" {
		return l.file
	}
	path := filepath.Join(l.rootDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("detector.max_depth", d.Detector.MaxDepth)
	v.SetDefault("detector.exclusions", d.Detector.Exclusions)
	v.SetDefault("detector.parallelism", d.Detector.Parallelism)
	v.SetDefault("detector.buildless", d.Detector.Buildless)
	v.SetDefault("detector.included", d.Detector.Included)
	v.SetDefault("detector.excluded", d.Detector.Excluded)
	v.SetDefault("detector.timeout", d.Detector.Timeout)

	v.SetDefault("bazel.target", d.Bazel.Target)
	v.SetDefault("bazel.path", d.Bazel.Path)
	v.SetDefault("yarn.include_dev", d.Yarn.IncludeDev)
	v.SetDefault("npm.include_dev", d.NPM.IncludeDev)
	v.SetDefault("npm.include_peer", d.NPM.IncludePeer)
	v.SetDefault("go.path", d.Go.Path)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("upload.dir", d.Upload.Dir)
	v.SetDefault("upload.formats", d.Upload.Formats)
	v.SetDefault("upload.url", d.Upload.URL)
	v.SetDefault("upload.wait_timeout", d.Upload.WaitTimeout)
	v.SetDefault("upload.poll_interval", d.Upload.PollInterval)

	v.SetDefault("project.name", d.Project.Name)
	v.SetDefault("project.version", d.Project.Version)
	v.SetDefault("project.aggregate", d.Project.Aggregate)

	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.mongo_uri", d.Serve.MongoURI)
	v.SetDefault("serve.database", d.Serve.Database)
	v.SetDefault("serve.workers", d.Serve.Workers)

	v.SetDefault("fail_fast", d.FailFast)
}
