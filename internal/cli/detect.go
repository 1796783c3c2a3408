package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackscan/internal/config"
	"github.com/matzehuels/stackscan/pkg/buildinfo"
	"github.com/matzehuels/stackscan/pkg/cache"
	"github.com/matzehuels/stackscan/pkg/detector"
	"github.com/matzehuels/stackscan/pkg/executable"
	"github.com/matzehuels/stackscan/pkg/httputil"
	"github.com/matzehuels/stackscan/pkg/observability"
	"github.com/matzehuels/stackscan/pkg/pipeline"
	"github.com/matzehuels/stackscan/pkg/upload"
)

// detectFlags holds flags whose values only matter when set explicitly;
// everything else comes from configuration.
type detectFlags struct {
	report     string
	noProgress bool
}

// flagKeys maps detect flags to configuration keys.
var flagKeys = map[string]string{
	"max-depth":       "detector.max_depth",
	"exclude-dir":     "detector.exclusions",
	"parallelism":     "detector.parallelism",
	"buildless":       "detector.buildless",
	"include":         "detector.included",
	"exclude":         "detector.excluded",
	"timeout":         "detector.timeout",
	"bazel-target":    "bazel.target",
	"yarn-dev":        "yarn.include_dev",
	"npm-dev":         "npm.include_dev",
	"cache":           "cache.backend",
	"output-dir":      "upload.dir",
	"format":          "upload.formats",
	"upload-url":      "upload.url",
	"project-name":    "project.name",
	"project-version": "project.version",
	"aggregate":       "project.aggregate",
	"fail-fast":       "fail_fast",
}

// detectCommand creates the detect command.
func (c *CLI) detectCommand() *cobra.Command {
	var flags detectFlags
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "detect [root]",
		Short: "Detect package managers and extract dependency graphs",
		Long: `Detect walks the tree below root (default: current directory), evaluates every
rule in each directory and extracts a dependency graph wherever a rule applies.

Extracted graphs become code locations. They are written to --output-dir and/or
posted to the collector at --upload-url. Without either, the run only reports.

Exit codes: 0 success, 1 error, 2 a rule or code location failed and
fail_fast is set, 130 interrupted.`,
		Example: `  # Scan the current directory only
  stackscan detect

  # Scan three levels deep and write JSON and SVG code locations
  stackscan detect ./monorepo --max-depth 3 --output-dir out --format json,svg

  # Only lock-file rules, uploaded to a collector
  stackscan detect --buildless --upload-url http://localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			overrides, err := changedFlags(cmd)
			if err != nil {
				return err
			}
			return c.runDetect(cmd.Context(), root, overrides, flags)
		},
	}

	f := cmd.Flags()
	f.Int("max-depth", d.Detector.MaxDepth, "directory depth below root to scan")
	f.StringSlice("exclude-dir", d.Detector.Exclusions, "glob patterns of directories to skip")
	f.Int("parallelism", d.Detector.Parallelism, "directories evaluated concurrently")
	f.Bool("buildless", false, "only run rules that need no build tool")
	f.StringSlice("include", nil, "only run these rules or groups")
	f.StringSlice("exclude", nil, "skip these rules or groups")
	f.Duration("timeout", d.Detector.Timeout, "timeout for each external command")
	f.String("bazel-target", "", "bazel target to query (required by the bazel rule)")
	f.Bool("yarn-dev", false, "include yarn dev dependencies")
	f.Bool("npm-dev", false, "include npm dev dependencies")
	f.String("cache", d.Cache.Backend, "extraction cache backend: none, file or redis")
	f.String("output-dir", "", "write code locations to this directory")
	f.StringSlice("format", d.Upload.Formats, "output formats: json, dot, svg")
	f.String("upload-url", "", "collector base URL")
	f.String("project-name", "", "project name (default: detected)")
	f.String("project-version", "", "project version (default: detected)")
	f.Bool("aggregate", false, "merge all graphs into one code location")
	f.Bool("fail-fast", false, "exit 2 when any rule or code location failed")
	f.StringVar(&flags.report, "report", "", "write the JSON report to this file (- for stdout)")
	f.BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

// changedFlags returns configuration overrides for flags set on the
// command line.
func changedFlags(cmd *cobra.Command) (map[string]any, error) {
	out := make(map[string]any)
	for name, key := range flagKeys {
		fl := cmd.Flags().Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		var (
			v   any
			err error
		)
		switch fl.Value.Type() {
		case "int":
			v, err = cmd.Flags().GetInt(name)
		case "bool":
			v, err = cmd.Flags().GetBool(name)
		case "stringSlice":
			v, err = cmd.Flags().GetStringSlice(name)
		case "duration":
			v, err = cmd.Flags().GetDuration(name)
		default:
			v = fl.Value.String()
		}
		if err != nil {
			return nil, fmt.Errorf("flag --%s: %w", name, err)
		}
		out[key] = v
	}
	return out, nil
}

func (c *CLI) runDetect(ctx context.Context, root string, overrides map[string]any, flags detectFlags) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	cfg, err := c.loadConfig(abs, overrides)
	if err != nil {
		return err
	}

	rules, err := ruleSet(cfg)
	if err != nil {
		return err
	}
	extractions, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer extractions.Close()

	tools, err := newResolver(cfg)
	if err != nil {
		return err
	}
	defer tools.Close()

	progress := newScanProgress(os.Stderr, flags.noProgress || flags.report == "-", c.Logger)
	hooks := progress.hooks()

	orch, err := detector.New(rules,
		detector.WithLogger(c.Logger),
		detector.WithHooks(hooks),
		detector.WithCache(extractions, cache.NewDefaultKeyer(cacheVersion), cfg.Cache.TTL),
		detector.WithMaxDepth(cfg.Detector.MaxDepth),
		detector.WithExclusions(cfg.Detector.Exclusions...),
		detector.WithParallelism(cfg.Detector.Parallelism),
		detector.WithExecutables(tools),
		detector.WithRunner(&executable.Runner{DefaultTimeout: cfg.Detector.Timeout, Logger: c.Logger}),
	)
	if err != nil {
		return err
	}

	uploader, err := newUploader(cfg, hooks, c)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(orch, uploader, c.Logger)
	res, runErr := runner.Execute(ctx, pipeline.Options{
		Root:           abs,
		ProjectName:    cfg.Project.Name,
		ProjectVersion: cfg.Project.Version,
		Aggregate:      cfg.Project.Aggregate,
		WaitTimeout:    cfg.Upload.WaitTimeout,
	})
	progress.finish()
	if res == nil {
		return runErr
	}

	if flags.report != "" {
		if err := c.writeReport(flags.report, res.Report); err != nil {
			return err
		}
	}
	if flags.report != "-" {
		printSummary(c.out, res, progress.hits.Load())
	}

	if runErr != nil {
		return runErr
	}
	if cfg.FailFast && res.Failed() {
		return &ExitCodeError{Code: ExitPolicy, Reason: "detection finished with failures"}
	}
	return nil
}

// newUploader builds the configured sinks. It returns nil when no sink is
// configured.
func newUploader(cfg *config.Config, hooks observability.Hooks, c *CLI) (upload.Uploader, error) {
	var sinks upload.Multi
	if cfg.Upload.Dir != "" {
		fu, err := upload.NewFileUploader(cfg.Upload.Dir, cfg.Upload.Formats, upload.WithFileLogger(c.Logger))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fu)
	}
	if cfg.Upload.URL != "" {
		client := httputil.NewClient(httputil.WithHooks(hooks.HTTP), httputil.WithHeader("User-Agent", buildinfo.UserAgent()))
		hu, err := upload.NewHTTPUploader(cfg.Upload.URL,
			upload.WithClient(client),
			upload.WithPollInterval(cfg.Upload.PollInterval),
			upload.WithHTTPLogger(c.Logger))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, hu)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (c *CLI) writeReport(path string, r *detector.Report) error {
	var w io.Writer = c.out
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := r.WriteJSON(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// printSummary renders the run for humans.
func printSummary(w io.Writer, res *pipeline.Result, cacheHits int64) {
	report := res.Report
	fmt.Fprintln(w)
	printKeyValue(w, "Project", fmt.Sprintf("%s %s", res.Project.Name, StyleDim.Render(res.Project.Version)))
	printKeyValue(w, "Root", report.Root)
	printKeyValue(w, "Run", res.RunID)
	printStats(w, res.Stats, cacheHits)
	fmt.Fprintln(w)

	for _, ev := range report.Evaluations {
		switch {
		case ev.Status == detector.StatusSucceeded:
			deps := ev.Extraction.Graph().DependencyCount()
			printSuccess(w, "%s %s %s", StyleHighlight.Render(ev.Rule), dirLabel(ev.Dir), StyleDim.Render(fmt.Sprintf("%d dependencies", deps)))
		case ev.Status == detector.StatusYielded:
			printInfo(w, "%s %s yielded to %s", ev.Rule, dirLabel(ev.Dir), ev.YieldedTo)
		case ev.Status.Failed():
			printError(w, "%s %s %s", StyleHighlight.Render(ev.Rule), dirLabel(ev.Dir), ev.Status)
			for _, d := range ev.Diagnostics() {
				printDetail(w, "%s", d.Message)
			}
		case ev.Status == detector.StatusCancelled:
			printWarning(w, "%s %s cancelled", ev.Rule, dirLabel(ev.Dir))
		}
	}

	if len(res.Locations.Names) > 0 {
		fmt.Fprintln(w)
		printInfo(w, "Code locations")
		for _, n := range res.Locations.Names {
			printFile(w, n)
		}
	}
	for _, d := range res.Locations.Diagnostics() {
		label := d.Context["names"]
		if label == "" {
			label = d.Context["id"]
		}
		printError(w, "%s: %s", label, d.Message)
	}
	if res.UploadErr != nil {
		printWarning(w, "upload incomplete: %v", res.UploadErr)
	}
	if res.Stats.Succeeded == 0 && res.Stats.Failed == 0 {
		printWarning(w, "No rule applied below %s", report.Root)
		printNextStep(w, "List the available rules", appName+" detectors")
	}
}

func dirLabel(dir string) string {
	if dir == "." {
		return StyleDim.Render("(root)")
	}
	return StyleDim.Render(dir)
}
