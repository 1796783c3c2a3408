package detector

import (
	"encoding/json"
	"io"
	"time"

	"github.com/matzehuels/stackscan/pkg/detect"
)

// Report is the result of one orchestrator run. Evaluations are ordered by
// directory (walk order) and then by rule precedence.
type Report struct {
	Root        string
	Directories []string
	Evaluations []Evaluation
	Duration    time.Duration
}

// Succeeded returns the evaluations whose extraction succeeded.
func (r *Report) Succeeded() []Evaluation {
	return r.filter(func(e Evaluation) bool { return e.Status == StatusSucceeded })
}

// Failures returns the evaluations that need a user's attention.
func (r *Report) Failures() []Evaluation {
	return r.filter(func(e Evaluation) bool { return e.Status.Failed() })
}

// Cancelled reports whether any evaluation was skipped by cancellation.
func (r *Report) Cancelled() bool {
	for _, e := range r.Evaluations {
		if e.Status == StatusCancelled {
			return true
		}
	}
	return false
}

// Diagnostics returns every actionable diagnostic in report order.
func (r *Report) Diagnostics() []detect.Diagnostic {
	var out []detect.Diagnostic
	for _, e := range r.Evaluations {
		out = append(out, e.Diagnostics()...)
	}
	return out
}

// Counts returns the number of evaluations per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, e := range r.Evaluations {
		counts[e.Status]++
	}
	return counts
}

func (r *Report) filter(keep func(Evaluation) bool) []Evaluation {
	var out []Evaluation
	for _, e := range r.Evaluations {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

type evaluationJSON struct {
	Rule        string              `json:"rule"`
	Group       string              `json:"group,omitempty"`
	Dir         string              `json:"dir"`
	Status      Status              `json:"status"`
	DurationMS  int64               `json:"duration_ms"`
	Description string              `json:"description,omitempty"`
	YieldedTo   string              `json:"yielded_to,omitempty"`
	Cached      bool                `json:"cached,omitempty"`
	Project     *detect.NameVersion `json:"project,omitempty"`
	Diagnostics []detect.Diagnostic `json:"diagnostics,omitempty"`
}

type reportJSON struct {
	Root        string           `json:"root"`
	Directories int              `json:"directories"`
	DurationMS  int64            `json:"duration_ms"`
	Evaluations []evaluationJSON `json:"evaluations"`
}

// WriteJSON writes the report, omitting evaluations that were not
// applicable.
func (r *Report) WriteJSON(w io.Writer) error {
	out := reportJSON{
		Root:        r.Root,
		Directories: len(r.Directories),
		DurationMS:  r.Duration.Milliseconds(),
		Evaluations: []evaluationJSON{},
	}
	for _, e := range r.Evaluations {
		if e.Status == StatusNotApplicable {
			continue
		}
		ej := evaluationJSON{
			Rule:        e.Rule,
			Group:       e.Group,
			Dir:         e.Dir,
			Status:      e.Status,
			DurationMS:  e.Duration.Milliseconds(),
			Description: describe(e),
			YieldedTo:   e.YieldedTo,
			Cached:      e.Cached,
			Diagnostics: e.Diagnostics(),
		}
		if e.Extraction != nil {
			if p, ok := e.Extraction.Project(); ok {
				ej.Project = &p
			}
		}
		out.Evaluations = append(out.Evaluations, ej)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func describe(e Evaluation) string {
	if r := e.failedPhase(); r != nil {
		return r.Description()
	}
	switch e.Status {
	case StatusFailed, StatusException:
		if e.Extraction != nil {
			return e.Extraction.Description()
		}
	case StatusYielded:
		return "yielded to " + e.YieldedTo
	case StatusSucceeded:
		if e.Applicable != nil {
			return e.Applicable.Description()
		}
	}
	return ""
}
