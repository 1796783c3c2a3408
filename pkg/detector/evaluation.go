package detector

import (
	"time"

	"github.com/matzehuels/stackscan/pkg/detect"
)

// Status is the outcome of one (rule, directory) evaluation.
type Status string

const (
	// StatusNotApplicable means the rule found nothing it recognises.
	StatusNotApplicable Status = "not-applicable"
	// StatusYielded means a preferred rule applied to the same directory.
	StatusYielded Status = "yielded"
	// StatusPropertyInsufficient means the directory matched but the rule
	// refused to apply, for example for lack of configuration.
	StatusPropertyInsufficient Status = "property-insufficient"
	// StatusNotExtractable means the rule applied but a prerequisite such
	// as a build tool is missing.
	StatusNotExtractable Status = "not-extractable"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusException      Status = "exception"
	// StatusCancelled means the run was cancelled before the rule ran.
	StatusCancelled Status = "cancelled"
)

// Attempted reports whether the rule got past applicability.
func (s Status) Attempted() bool {
	switch s {
	case StatusNotExtractable, StatusSucceeded, StatusFailed, StatusException:
		return true
	}
	return false
}

// Failed reports whether the status deserves a user's attention.
func (s Status) Failed() bool {
	switch s {
	case StatusPropertyInsufficient, StatusNotExtractable, StatusFailed, StatusException:
		return true
	}
	return false
}

// Evaluation records one rule evaluated against one directory.
type Evaluation struct {
	Rule     string
	Group    string
	Forge    string
	Dir      string // relative to the scan root, slash separated
	Depth    int
	Status   Status
	Duration time.Duration

	Applicable  detect.Result
	Extractable detect.Result
	Extraction  *detect.Extraction

	// YieldedTo names the rule this one deferred to.
	YieldedTo string
	// Cached is set when Extraction came from the extraction cache.
	Cached bool
}

// Diagnostics returns the actionable diagnostics of the evaluation, each
// tagged with the rule and directory.
func (e Evaluation) Diagnostics() []detect.Diagnostic {
	var out []detect.Diagnostic
	add := func(d detect.Diagnostic) {
		out = append(out, d.With("rule", e.Rule).With("dir", e.Dir))
	}
	if r := e.failedPhase(); r != nil {
		add(detect.DiagnosticFor(r))
	}
	if e.Extraction != nil {
		for _, d := range e.Extraction.Diagnostics() {
			add(d)
		}
	}
	return out
}

// failedPhase returns the Applicable or Extractable result that stopped
// the evaluation, or nil. A missing file only counts once the rule applied.
func (e Evaluation) failedPhase() detect.Result {
	switch {
	case e.Applicable == nil:
		return nil
	case !e.Applicable.Passed():
		if detect.IsActionable(e.Applicable) {
			return e.Applicable
		}
		return nil
	case e.Extractable != nil && !e.Extractable.Passed():
		return e.Extractable
	}
	return nil
}
