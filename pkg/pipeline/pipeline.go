// Package pipeline runs a complete scan: detect, decide the project,
// build code locations, upload them and fold the results.
//
// This package centralizes the flow so the CLI and tests share one
// implementation.
//
// # Architecture
//
// A run has four stages:
//
//  1. Detect: the orchestrator walks the tree and evaluates every rule
//  2. Project: the project name and version are decided from
//     configuration, detected identities or the root directory
//  3. Code locations: every successful extraction becomes a code location,
//     or all of them are merged into one when aggregating
//  4. Upload: code locations are handed to the uploader and the
//     accumulated handles are awaited by a codelocation.Calculator
//
// # Usage
//
//	runner := pipeline.NewRunner(orchestrator, uploader, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Root: "."})
//	if err != nil {
//	    return err
//	}
//	if result.Failed() {
//	    os.Exit(2)
//	}
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detector"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultProjectVersion is used when no version is configured or detected.
	DefaultProjectVersion = "default"

	// DefaultWaitTimeout bounds each waitable code location.
	DefaultWaitTimeout = codelocation.DefaultWaitTimeout

	// AggregateCreator names the merged code location's creator.
	AggregateCreator = "aggregate"
)

// ProjectSource records where the project identity came from.
type ProjectSource string

const (
	ProjectFromConfig   ProjectSource = "config"
	ProjectFromDetector ProjectSource = "detector"
	ProjectFromRoot     ProjectSource = "root"
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures one run.
type Options struct {
	// Root is the directory to scan.
	Root string `json:"root"`

	// ProjectName and ProjectVersion override the detected identity.
	ProjectName    string `json:"project_name,omitempty"`
	ProjectVersion string `json:"project_version,omitempty"`

	// Aggregate merges every extraction into a single code location.
	Aggregate bool `json:"aggregate,omitempty"`

	// WaitTimeout bounds each waitable code location.
	WaitTimeout time.Duration `json:"wait_timeout,omitempty"`

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Root == "" {
		return fmt.Errorf("root is required")
	}
	if o.ProjectVersion != "" && o.ProjectName == "" {
		return fmt.Errorf("project version requires a project name")
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a run.
type Result struct {
	// RunID identifies the run in uploaded documents and logs.
	RunID string

	// Project is the decided project identity.
	Project       detect.NameVersion
	ProjectSource ProjectSource

	// Report is the orchestrator's per-directory, per-rule outcome.
	Report *detector.Report

	// CodeLocations were handed to the uploader.
	CodeLocations []codelocation.CodeLocation

	// Locations is the folded accumulator.
	Locations codelocation.Results

	// UploadErr joins the uploader's per-location failures.
	UploadErr error

	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	Directories   int
	Evaluations   int
	Succeeded     int
	Failed        int
	CodeLocations int
	Dependencies  int
	DetectTime    time.Duration
	UploadTime    time.Duration
	WaitTime      time.Duration
}

// Failed reports whether an attempted rule failed, an upload failed or a
// code location did not complete. The CLI maps this to the fail-fast exit
// code.
func (r *Result) Failed() bool {
	return r.Stats.Failed > 0 || r.UploadErr != nil || !r.Locations.Complete()
}
