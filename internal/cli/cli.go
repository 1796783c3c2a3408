// Package cli implements the stackscan command-line interface.
//
// # Commands
//
//   - detect: scan a tree, extract dependency graphs and upload them
//   - detectors: list the built-in rules in precedence order
//   - serve: run the code location collector
//   - cache: inspect and clear the extraction cache
//   - completion: generate shell completions
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackscan/internal/config"
	"github.com/matzehuels/stackscan/pkg/buildinfo"
	"github.com/matzehuels/stackscan/pkg/cache"
	"github.com/matzehuels/stackscan/pkg/detectables"
	"github.com/matzehuels/stackscan/pkg/detectables/bazel"
	"github.com/matzehuels/stackscan/pkg/detectables/gomod"
	"github.com/matzehuels/stackscan/pkg/detectables/npm"
	"github.com/matzehuels/stackscan/pkg/detectables/yarn"
	"github.com/matzehuels/stackscan/pkg/detector"
	"github.com/matzehuels/stackscan/pkg/executable"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "stackscan"

	// cacheVersion scopes extraction cache keys; bump it when handler
	// output changes shape.
	cacheVersion = "1"
)

// Exit codes returned through ExitError.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitPolicy      = 2
	ExitInterrupted = 130
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ExitCodeError asks main to exit with Code after printing nothing further.
type ExitCodeError struct {
	Code   int
	Reason string
}

func (e *ExitCodeError) Error() string { return e.Reason }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	var exit *ExitCodeError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &exit):
		return exit.Code
	default:
		return ExitError
	}
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// out receives human-readable output.
	out io.Writer

	// configFile is the --config flag.
	configFile string
}

// New creates a CLI that logs to w at level, with timestamps formatted
// as "HH:MM:SS.ms".
func New(w io.Writer, level log.Level) *CLI {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	return &CLI{Logger: logger, out: os.Stdout}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects human-readable output.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Stackscan detects package managers and extracts dependency graphs",
		Long:          `Stackscan walks a source tree, finds the package-manager and build-tool files it recognizes, extracts a dependency graph from each and uploads the results as code locations.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbose bool
	root.PersistentPreRun = func(*cobra.Command, []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: <root>/"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.detectCommand())
	root.AddCommand(c.detectorsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig reads configuration for root, applying the given overrides.
func (c *CLI) loadConfig(root string, overrides map[string]any) (*config.Config, error) {
	l := config.NewLoader(root)
	if c.configFile != "" {
		l.WithFile(c.configFile)
	}
	for k, v := range overrides {
		l.Set(k, v)
	}
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	if used := l.Used(); used != "" {
		c.Logger.Debug("loaded config", "file", used)
	}
	return cfg, nil
}

// ruleSet builds the built-in rules from cfg and applies its selection.
func ruleSet(cfg *config.Config) (*detector.RuleSet, error) {
	all, err := detectables.RuleSet(detectables.Options{
		Bazel: bazel.Options{Target: cfg.Bazel.Target, Timeout: cfg.Detector.Timeout},
		Yarn:  yarn.Options{IncludeDev: cfg.Yarn.IncludeDev},
		NPM:   npm.Options{IncludeDev: cfg.NPM.IncludeDev, IncludePeer: cfg.NPM.IncludePeer},
		Go:    gomod.Options{Timeout: cfg.Detector.Timeout},
	})
	if err != nil {
		return nil, err
	}
	return all.Select(detector.Selection{
		Included:  cfg.Detector.Included,
		Excluded:  cfg.Detector.Excluded,
		Buildless: cfg.Detector.Buildless,
	})
}

// newResolver builds the executable resolver, pinning the tools whose paths
// are configured. A pinned path that is not executable resolves to nothing.
func newResolver(cfg *config.Config) (*executable.Resolver, error) {
	return executable.NewResolver(
		executable.WithOverride("bazel", cfg.Bazel.Path),
		executable.WithOverride("go", cfg.Go.Path),
	)
}

// newCache opens the configured extraction cache.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL, appName+":")
	case config.CacheFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	default:
		return cache.NewNullCache(), nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stackscan/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".cache", appName), nil
}
