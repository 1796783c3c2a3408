// Package config loads stackscan configuration.
//
// Values come from, in increasing priority: built-in defaults, a
// .stackscan.yaml file in the scanned root (or an explicit file), STACKSCAN_*
// environment variables, and command-line flags.
package config

import (
	"runtime"
	"slices"
	"time"

	"github.com/matzehuels/stackscan/pkg/detector"
	"github.com/matzehuels/stackscan/pkg/upload"
)

// FileName is the configuration file looked up in the scanned root.
const FileName = ".stackscan.yaml"

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete stackscan configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector" mapstructure:"detector"`
	Bazel    BazelConfig    `yaml:"bazel" mapstructure:"bazel"`
	Yarn     YarnConfig     `yaml:"yarn" mapstructure:"yarn"`
	NPM      NPMConfig      `yaml:"npm" mapstructure:"npm"`
	Go       GoConfig       `yaml:"go" mapstructure:"go"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Upload   UploadConfig   `yaml:"upload" mapstructure:"upload"`
	Project  ProjectConfig  `yaml:"project" mapstructure:"project"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
	FailFast bool           `yaml:"fail_fast" mapstructure:"fail_fast"` // exit 2 when anything attempted failed
}

// DetectorConfig controls the directory walk and rule selection.
type DetectorConfig struct {
	MaxDepth    int           `yaml:"max_depth" mapstructure:"max_depth"`     // 0 scans only the root
	Exclusions  []string      `yaml:"exclusions" mapstructure:"exclusions"`   // glob patterns
	Parallelism int           `yaml:"parallelism" mapstructure:"parallelism"` // directories evaluated at once
	Buildless   bool          `yaml:"buildless" mapstructure:"buildless"`
	Included    []string      `yaml:"included" mapstructure:"included"` // rule names or groups
	Excluded    []string      `yaml:"excluded" mapstructure:"excluded"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"` // per external command
}

type BazelConfig struct {
	Target string `yaml:"target" mapstructure:"target"`
	Path   string `yaml:"path" mapstructure:"path"`
}

type YarnConfig struct {
	IncludeDev bool `yaml:"include_dev" mapstructure:"include_dev"`
}

type NPMConfig struct {
	IncludeDev  bool `yaml:"include_dev" mapstructure:"include_dev"`
	IncludePeer bool `yaml:"include_peer" mapstructure:"include_peer"`
}

type GoConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig selects the extraction cache backend.
type CacheConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"`     // none, file or redis
	Dir      string        `yaml:"dir" mapstructure:"dir"`             // file backend; empty means the user cache dir
	RedisURL string        `yaml:"redis_url" mapstructure:"redis_url"` // redis backend
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// UploadConfig selects where code locations go.
type UploadConfig struct {
	Dir          string        `yaml:"dir" mapstructure:"dir"`
	Formats      []string      `yaml:"formats" mapstructure:"formats"`
	URL          string        `yaml:"url" mapstructure:"url"`
	WaitTimeout  time.Duration `yaml:"wait_timeout" mapstructure:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

type ProjectConfig struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Version   string `yaml:"version" mapstructure:"version"`
	Aggregate bool   `yaml:"aggregate" mapstructure:"aggregate"`
}

// ServeConfig configures the collector.
type ServeConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	MongoURI string `yaml:"mongo_uri" mapstructure:"mongo_uri"` // empty keeps records in memory
	Database string `yaml:"database" mapstructure:"database"`
	Workers  int    `yaml:"workers" mapstructure:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			MaxDepth:    detector.DefaultMaxDepth,
			Exclusions:  slices.Clone(detector.DefaultExclusions),
			Parallelism: runtime.NumCPU(),
			Timeout:     5 * time.Minute,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     detector.DefaultCacheTTL,
		},
		Upload: UploadConfig{
			Formats:      []string{upload.FormatJSON},
			WaitTimeout:  5 * time.Minute,
			PollInterval: 2 * time.Second,
		},
		Serve: ServeConfig{
			Addr:     ":8080",
			Database: "stackscan",
			Workers:  4,
		},
	}
}
