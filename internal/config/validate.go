package config

import (
	"fmt"
	"slices"

	"github.com/gobwas/glob"

	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/upload"
)

// Validate checks a loaded configuration. Errors carry ErrCodeInvalidConfig.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.Detector.MaxDepth < 0 {
		add("detector.max_depth must be >= 0, got %d", cfg.Detector.MaxDepth)
	}
	if cfg.Detector.Parallelism < 1 {
		add("detector.parallelism must be >= 1, got %d", cfg.Detector.Parallelism)
	}
	if cfg.Detector.Timeout <= 0 {
		add("detector.timeout must be positive")
	}
	for _, p := range cfg.Detector.Exclusions {
		if _, err := glob.Compile(p, '/'); err != nil {
			add("detector.exclusions: invalid pattern %q: %v", p, err)
		}
	}

	switch cfg.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if cfg.Cache.RedisURL == "" {
			add("cache.redis_url is required for the redis backend")
		}
	default:
		add("cache.backend must be one of none, file, redis, got %q", cfg.Cache.Backend)
	}

	for _, f := range cfg.Upload.Formats {
		if !slices.Contains(upload.ValidFormats, f) {
			add("upload.formats: unknown format %q", f)
		}
	}
	if cfg.Upload.URL != "" {
		if err := errors.ValidateURL(cfg.Upload.URL); err != nil {
			add("upload.url: %s", errors.UserMessage(err))
		}
	}
	if cfg.Upload.WaitTimeout <= 0 {
		add("upload.wait_timeout must be positive")
	}
	if cfg.Upload.PollInterval <= 0 {
		add("upload.poll_interval must be positive")
	}

	if cfg.Project.Version != "" && cfg.Project.Name == "" {
		add("project.version requires project.name")
	}
	if cfg.Serve.Workers < 1 {
		add("serve.workers must be >= 1")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s", joinProblems(problems))
}

func joinProblems(p []string) string {
	if len(p) == 1 {
		return p[0]
	}
	out := fmt.Sprintf("%d problems:", len(p))
	for _, s := range p {
		out += "\n  - " + s
	}
	return out
}
