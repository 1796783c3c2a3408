package steps

import (
	"github.com/matzehuels/stackscan/pkg/errors"
)

// Pipeline threads lines through an ordered list of steps. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	steps     []Step
	executors []Executor
}

// New binds each step to the single executor that claims its kind. It
// returns an ErrCodeInvalidStep error when a kind is claimed by no executor
// or by more than one. With no executors given, DefaultExecutors is used.
func New(steps []Step, executors ...Executor) (*Pipeline, error) {
	if len(executors) == 0 {
		executors = DefaultExecutors()
	}
	p := &Pipeline{
		steps:     append([]Step(nil), steps...),
		executors: make([]Executor, len(steps)),
	}
	for i, s := range steps {
		exec, err := selectExecutor(s.kind, executors)
		if err != nil {
			return nil, err
		}
		p.executors[i] = exec
	}
	return p, nil
}

// MustNew is like New but panics on error.
func MustNew(steps []Step, executors ...Executor) *Pipeline {
	p, err := New(steps, executors...)
	if err != nil {
		panic(err)
	}
	return p
}

func selectExecutor(k Kind, executors []Executor) (Executor, error) {
	var found Executor
	for _, e := range executors {
		if !e.Applies(k) {
			continue
		}
		if found != nil {
			return nil, errors.New(errors.ErrCodeInvalidStep, "step kind %q is claimed by more than one executor", k)
		}
		found = e
	}
	if found == nil {
		return nil, errors.New(errors.ErrCodeInvalidStep, "no executor supports step kind %q", k)
	}
	return found, nil
}

// Run applies every step in order; the output of one step is the input of
// the next.
func (p *Pipeline) Run(lines []string) []string {
	out := lines
	for i, s := range p.steps {
		out = p.executors[i].Process(s, out)
	}
	if out == nil {
		return []string{}
	}
	return out
}

// Steps returns a copy of the pipeline's steps.
func (p *Pipeline) Steps() []Step { return append([]Step(nil), p.steps...) }
