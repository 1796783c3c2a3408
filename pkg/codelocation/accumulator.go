package codelocation

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrDuplicateWaitable is returned when a handle with the same ID was
	// already added.
	ErrDuplicateWaitable = errors.New("waitable code location already added")

	// ErrNameClaimed is returned when a name is already registered.
	ErrNameClaimed = errors.New("code location name already registered")
)

// Waitable is a code location whose completion must be awaited.
type Waitable interface {
	// ID identifies the handle, for example a collector record ID.
	ID() string
	// Names lists the code location names the handle completes.
	Names() []string
	// Wait blocks until the handle completes, fails or ctx ends.
	Wait(ctx context.Context) error
}

// Accumulator collects code locations for one run. It only grows and is
// safe for concurrent use.
type Accumulator struct {
	mu        sync.Mutex
	waitables []Waitable
	ids       map[string]struct{}
	names     []string
	claimed   map[string]struct{}
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		ids:     make(map[string]struct{}),
		claimed: make(map[string]struct{}),
	}
}

// AddWaitable registers a handle. Its names must not already be registered.
func (a *Accumulator) AddWaitable(w Waitable) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.ids[w.ID()]; dup {
		return ErrDuplicateWaitable
	}
	names := w.Names()
	for _, n := range names {
		if _, dup := a.claimed[n]; dup {
			return ErrNameClaimed
		}
	}
	a.ids[w.ID()] = struct{}{}
	for _, n := range names {
		a.claimed[n] = struct{}{}
	}
	a.waitables = append(a.waitables, w)
	return nil
}

// AddNonWaitable registers names that are already final. Names registered
// before, waitable or not, are ignored. It returns how many were added.
func (a *Accumulator) AddNonWaitable(names ...string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, n := range names {
		if _, dup := a.claimed[n]; dup {
			continue
		}
		a.claimed[n] = struct{}{}
		a.names = append(a.names, n)
		added++
	}
	return added
}

// Waitables returns the registered handles in registration order.
func (a *Accumulator) Waitables() []Waitable {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.waitables)
}

// NonWaitable returns the registered final names in registration order.
func (a *Accumulator) NonWaitable() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.names)
}

// Len returns the number of registered waitable handles and final names.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.waitables) + len(a.names)
}
