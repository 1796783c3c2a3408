package detect

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/stackscan/pkg/dag"
)

// Outcome classifies an Extraction.
type Outcome int

const (
	// OutcomeSuccess means a dependency graph was produced.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means the handler ran but could not produce a graph,
	// for example malformed input or a tool exiting non-zero.
	OutcomeFailure
	// OutcomeException means an unexpected error occurred.
	OutcomeException
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeException:
		return "exception"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// NameVersion identifies a project.
type NameVersion struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Extraction is the immutable result of Detectable.Extract. Failure and
// exception extractions never carry a graph.
type Extraction struct {
	outcome     Outcome
	graph       *dag.DAG
	project     *NameVersion
	diagnostics []Diagnostic
	description string
	err         error
}

// ExtractionOption decorates an Extraction at construction.
type ExtractionOption func(*Extraction)

// WithProject records the project identity the handler discovered.
func WithProject(name, version string) ExtractionOption {
	return func(e *Extraction) {
		if name != "" {
			e.project = &NameVersion{Name: name, Version: version}
		}
	}
}

// WithDiagnostic attaches a diagnostic.
func WithDiagnostic(d Diagnostic) ExtractionOption {
	return func(e *Extraction) { e.diagnostics = append(e.diagnostics, d) }
}

// Succeeded returns a successful extraction of g. A nil graph is replaced
// by an empty one.
func Succeeded(g *dag.DAG, opts ...ExtractionOption) *Extraction {
	if g == nil {
		g = dag.New(nil)
	}
	return build(&Extraction{outcome: OutcomeSuccess, graph: g}, opts)
}

// Failed returns a failed extraction with a user-facing description.
func Failed(format string, args ...any) *Extraction {
	desc := fmt.Sprintf(format, args...)
	return &Extraction{
		outcome:     OutcomeFailure,
		description: desc,
		diagnostics: []Diagnostic{{Kind: DiagExtractionFailed, Message: desc}},
	}
}

// Errored returns an exception extraction retaining err.
func Errored(err error, opts ...ExtractionOption) *Extraction {
	if err == nil {
		err = fmt.Errorf("extraction errored without a cause")
	}
	e := &Extraction{
		outcome:     OutcomeException,
		description: err.Error(),
		err:         err,
		diagnostics: []Diagnostic{{Kind: DiagExtractionException, Message: err.Error()}},
	}
	return build(e, opts)
}

// WithFailureDetail returns a copy of a non-successful extraction with an
// additional diagnostic. Successful extractions are returned unchanged.
func (e *Extraction) WithFailureDetail(d Diagnostic) *Extraction {
	if e.outcome == OutcomeSuccess {
		return e
	}
	cp := *e
	cp.diagnostics = append(slices.Clone(e.diagnostics), d)
	return &cp
}

func build(e *Extraction, opts []ExtractionOption) *Extraction {
	for _, opt := range opts {
		opt(e)
	}
	if e.outcome != OutcomeSuccess {
		e.graph = nil
	}
	return e
}

// Outcome returns the extraction outcome.
func (e *Extraction) Outcome() Outcome { return e.outcome }

// Succeeded reports whether the outcome is OutcomeSuccess.
func (e *Extraction) Succeeded() bool { return e.outcome == OutcomeSuccess }

// Graph returns the dependency graph, nil unless the extraction succeeded.
func (e *Extraction) Graph() *dag.DAG { return e.graph }

// Project returns the discovered project identity.
func (e *Extraction) Project() (NameVersion, bool) {
	if e.project == nil {
		return NameVersion{}, false
	}
	return *e.project, true
}

// Diagnostics returns a copy of the attached diagnostics.
func (e *Extraction) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(e.diagnostics))
	for i, d := range e.diagnostics {
		out[i] = d
		out[i].Context = maps.Clone(d.Context)
	}
	return out
}

// Description describes a failure or exception.
func (e *Extraction) Description() string { return e.description }

// Err returns the cause of an exception extraction.
func (e *Extraction) Err() error { return e.err }
