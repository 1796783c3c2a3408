package cache

import (
	"context"
	"time"

	"github.com/matzehuels/stackscan/pkg/errors"
)

// Retryable marks a backend failure that may succeed when repeated, such
// as a dropped Redis connection. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "cache backend")
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, errors.ErrCodeNetwork)
}

// Policy bounds how often a retryable backend failure is repeated.
type Policy struct {
	Attempts int
	Base     time.Duration // first pause; doubled after every retry
}

// DefaultPolicy suits a nearby Redis: three tries, pausing 50ms then 100ms.
var DefaultPolicy = Policy{Attempts: 3, Base: 50 * time.Millisecond}

// Run calls op until it succeeds, fails with a non-retryable error or
// exhausts the attempts. A cancelled ctx ends the pause early.
func (p Policy) Run(ctx context.Context, op func() error) error {
	pause := p.Base
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !IsRetryable(err) || attempt >= p.Attempts {
			return err
		}
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		pause *= 2
	}
}
