package steps

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/stackscan/pkg/errors"
)

// Kind identifies the transformation a Step performs.
type Kind string

const (
	// Filter keeps lines matching any pattern, in input order.
	Filter Kind = "FILTER"
	// Extract replaces matching lines with their captured text and drops the rest.
	Extract Kind = "EXTRACT"
	// Edit rewrites every match of every pattern with Step.Replacement.
	// Lines that match nothing pass through unchanged.
	Edit Kind = "EDIT"
	// Split breaks each line on every pattern and emits the non-empty fields.
	Split Kind = "SPLIT"
)

// Step is one immutable transformation. Build it with NewStep.
type Step struct {
	kind        Kind
	patterns    []*regexp.Regexp
	replacement string
}

// Option configures a Step.
type Option func(*Step)

// WithReplacement sets the replacement text used by Edit steps. The text may
// reference capture groups with $1 or ${name}.
func WithReplacement(r string) Option {
	return func(s *Step) { s.replacement = r }
}

// NewStep compiles patterns into a Step. The kind is not checked here;
// pipelines reject kinds no executor claims.
func NewStep(kind Kind, patterns []string, opts ...Option) (Step, error) {
	s := Step{kind: kind, patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Step{}, errors.Wrap(errors.ErrCodeInvalidStep, err, "invalid %s pattern %q", kind, p)
		}
		s.patterns = append(s.patterns, re)
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s, nil
}

// MustStep is like NewStep but panics on an invalid pattern. It is meant for
// package-level pipelines with literal patterns.
func MustStep(kind Kind, patterns ...string) Step {
	s, err := NewStep(kind, patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the step kind.
func (s Step) Kind() Kind { return s.kind }

// Patterns returns the source text of the step's patterns.
func (s Step) Patterns() []string {
	out := make([]string, len(s.patterns))
	for i, re := range s.patterns {
		out[i] = re.String()
	}
	return out
}

// Replacement returns the Edit replacement text.
func (s Step) Replacement() string { return s.replacement }

func (s Step) String() string {
	return fmt.Sprintf("%s[%s]", s.kind, strings.Join(s.Patterns(), ", "))
}

// matches reports whether any pattern is found in line.
func (s Step) matches(line string) bool {
	return slices.ContainsFunc(s.patterns, func(re *regexp.Regexp) bool {
		return re.MatchString(line)
	})
}
