package codelocation

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
)

// DefaultWaitTimeout bounds each wait when Calculator.Timeout is zero.
const DefaultWaitTimeout = 5 * time.Minute

// defaultConcurrency bounds simultaneous waits.
const defaultConcurrency = 8

// Failure records a waitable handle that did not complete.
type Failure struct {
	ID    string
	Names []string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("code location %s failed: %v", f.ID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Diagnostic describes the failure for the reporting layer.
func (f Failure) Diagnostic() detect.Diagnostic {
	d := detect.Diagnostic{Kind: detect.DiagCodeLocationFailed, Message: f.Err.Error()}.With("id", f.ID)
	if len(f.Names) > 0 {
		d = d.With("names", strings.Join(f.Names, ", "))
	}
	return d
}

// Results is the folded outcome of a run.
type Results struct {
	// Names holds every completed code location, sorted.
	Names []string
	// Failures holds one entry per failed handle, in registration order.
	Failures []Failure
}

// Complete reports whether every handle completed.
func (r Results) Complete() bool { return len(r.Failures) == 0 }

// Diagnostics returns one code-location-failed diagnostic per failure.
func (r Results) Diagnostics() []detect.Diagnostic {
	out := make([]detect.Diagnostic, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Diagnostic()
	}
	return out
}

// Err joins the failures into one CODE_LOCATION_FAILED error, or nil.
func (r Results) Err() error {
	if r.Complete() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Wrap(errors.ErrCodeCodeLocationFailed, stderrors.Join(errs...), "%d of the code locations failed", len(r.Failures))
}

// Calculator folds an Accumulator into Results.
type Calculator struct {
	// Timeout bounds each individual wait. Zero means DefaultWaitTimeout.
	Timeout time.Duration
	// Concurrency bounds simultaneous waits. Zero means a small default.
	Concurrency int
}

// Calculate waits on every waitable handle and returns the union of the
// completed names. A handle that fails, panics or exceeds the timeout is
// reported in Results.Failures; the others are unaffected.
func (c Calculator) Calculate(ctx context.Context, acc *Accumulator) Results {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	limit := c.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	waitables := acc.Waitables()
	errs := make([]error, len(waitables))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, w := range waitables {
		g.Go(func() error {
			errs[i] = wait(ctx, w, timeout)
			return nil
		})
	}
	_ = g.Wait()

	var res Results
	names := acc.NonWaitable()
	for i, w := range waitables {
		if errs[i] != nil {
			res.Failures = append(res.Failures, Failure{ID: w.ID(), Names: w.Names(), Err: errs[i]})
			continue
		}
		names = append(names, w.Names()...)
	}
	slices.Sort(names)
	res.Names = slices.Compact(names)
	return res
}

func wait(ctx context.Context, w Waitable, timeout time.Duration) (err error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeInternal, "wait on %s panicked: %v", w.ID(), r)
		}
	}()

	err = w.Wait(wctx)
	if err != nil && ctx.Err() == nil && stderrors.Is(wctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "code location %s did not complete within %s", w.ID(), timeout)
	}
	return err
}
