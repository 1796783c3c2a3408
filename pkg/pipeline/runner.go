package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detector"
	"github.com/matzehuels/stackscan/pkg/upload"
)

// Detector walks a tree and evaluates rules. *detector.Orchestrator
// implements it.
type Detector interface {
	Run(ctx context.Context, root string) (*detector.Report, error)
}

// Runner executes runs. It holds no per-run state, so one Runner may
// serve several runs.
type Runner struct {
	Detector Detector
	Uploader upload.Uploader
	Logger   *log.Logger

	// newID generates run IDs.
	newID func() string
}

// NewRunner creates a runner. A nil uploader registers code locations as
// final without delivering them anywhere.
func NewRunner(d Detector, u upload.Uploader, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Detector: d, Uploader: u, Logger: logger, newID: uuid.NewString}
}

// Execute runs detect, project decision, code location building and
// upload. A cancelled run returns the partial result together with the
// context error.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{RunID: r.newID()}

	// Stage 1: Detect
	detectStart := time.Now()
	report, err := r.Detector.Run(ctx, opts.Root)
	if report == nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	result.Report = report
	result.Stats.DetectTime = time.Since(detectStart)
	result.Stats.Directories = len(report.Directories)
	result.Stats.Evaluations = len(report.Evaluations)
	result.Stats.Succeeded = len(report.Succeeded())
	result.Stats.Failed = len(report.Failures())

	r.Logger.Info("detection complete",
		"directories", result.Stats.Directories,
		"succeeded", result.Stats.Succeeded,
		"failed", result.Stats.Failed,
		"duration", result.Stats.DetectTime)
	if err != nil {
		return result, err
	}

	// Stage 2: Project
	result.Project, result.ProjectSource = DecideProject(report, opts)
	r.Logger.Info("project decided",
		"name", result.Project.Name,
		"version", result.Project.Version,
		"source", result.ProjectSource)

	// Stage 3: Code locations
	locs := CodeLocations(report, result.Project, opts.Aggregate)
	result.CodeLocations = locs
	result.Stats.CodeLocations = len(locs)
	for _, loc := range locs {
		result.Stats.Dependencies += loc.Graph.DependencyCount()
	}

	// Stage 4: Upload and wait
	acc := codelocation.NewAccumulator()
	uploadStart := time.Now()
	if r.Uploader != nil {
		result.UploadErr = r.Uploader.Upload(ctx, locs, acc)
		if result.UploadErr != nil {
			r.Logger.Warn("upload incomplete", "error", result.UploadErr)
		}
	} else {
		for _, loc := range locs {
			acc.AddNonWaitable(loc.Name())
		}
	}
	result.Stats.UploadTime = time.Since(uploadStart)

	waitStart := time.Now()
	result.Locations = codelocation.Calculator{Timeout: opts.WaitTimeout}.Calculate(ctx, acc)
	result.Stats.WaitTime = time.Since(waitStart)

	r.Logger.Info("code locations complete",
		"completed", len(result.Locations.Names),
		"failed", len(result.Locations.Failures),
		"duration", result.Stats.WaitTime)

	return result, ctx.Err()
}

// DecideProject picks the project identity. Configured values win;
// otherwise the shallowest successful extraction that reports a project
// is used, ties going to the earlier evaluation; otherwise the root
// directory's base name with version "default".
func DecideProject(report *detector.Report, opts Options) (detect.NameVersion, ProjectSource) {
	if opts.ProjectName != "" {
		return detect.NameVersion{
			Name:    opts.ProjectName,
			Version: cmp.Or(opts.ProjectVersion, DefaultProjectVersion),
		}, ProjectFromConfig
	}

	var (
		best  detect.NameVersion
		depth = -1
	)
	for _, ev := range report.Succeeded() {
		p, ok := ev.Extraction.Project()
		if !ok {
			continue
		}
		if depth < 0 || ev.Depth < depth {
			best, depth = p, ev.Depth
		}
	}
	if depth >= 0 {
		best.Version = cmp.Or(best.Version, DefaultProjectVersion)
		return best, ProjectFromDetector
	}

	root := report.Root
	if root == "" {
		root = opts.Root
	}
	return detect.NameVersion{Name: filepath.Base(root), Version: DefaultProjectVersion}, ProjectFromRoot
}

// CodeLocations builds one code location per successful extraction, in
// report order. With aggregate set, every graph is merged into a single
// code location at the scan root.
func CodeLocations(report *detector.Report, project detect.NameVersion, aggregate bool) []codelocation.CodeLocation {
	succeeded := report.Succeeded()
	if len(succeeded) == 0 {
		return nil
	}

	if aggregate {
		merged := dag.New(dag.Metadata{"creators": creators(succeeded)})
		for _, ev := range succeeded {
			merged.Merge(ev.Extraction.Graph())
		}
		return []codelocation.CodeLocation{{
			SourcePath: ".",
			Creator:    AggregateCreator,
			Project:    project,
			Graph:      merged,
		}}
	}

	locs := make([]codelocation.CodeLocation, 0, len(succeeded))
	for _, ev := range succeeded {
		locs = append(locs, codelocation.CodeLocation{
			SourcePath: ev.Dir,
			Creator:    ev.Rule,
			Project:    project,
			Graph:      ev.Extraction.Graph(),
		})
	}
	return locs
}

func creators(evs []detector.Evaluation) []string {
	names := make([]string, len(evs))
	for i, ev := range evs {
		names[i] = ev.Rule
	}
	slices.Sort(names)
	return slices.Compact(names)
}
