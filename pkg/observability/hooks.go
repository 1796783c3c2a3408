// Package observability provides hooks for progress reporting, metrics and
// tracing.
//
// Hooks are plain interfaces with no-op defaults. They travel explicitly:
// a [Hooks] value is passed to the orchestrator and the uploaders through
// their options, so two runs in the same process can be observed
// independently and nothing is registered globally.
//
//	hooks := observability.Hooks{Detector: progressHooks}
//	orch := detector.New(rules, detector.WithHooks(hooks))
//
// Libraries call hooks directly; a zero [Hooks] value is valid after
// [Hooks.WithDefaults].
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Detector Hooks
// =============================================================================

// DetectorHooks receives events from the detector orchestrator.
type DetectorHooks interface {
	// OnWalkComplete reports how many directories will be evaluated.
	OnWalkComplete(ctx context.Context, dirs int)

	// OnEvaluationComplete reports one (rule, directory) lifecycle.
	OnEvaluationComplete(ctx context.Context, rule, dir, status string, duration time.Duration)

	// OnDirectoryComplete reports that every rule ran for dir.
	OnDirectoryComplete(ctx context.Context, dir string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopDetectorHooks is a no-op implementation of DetectorHooks.
type NoopDetectorHooks struct{}

func (NoopDetectorHooks) OnWalkComplete(context.Context, int) {}
func (NoopDetectorHooks) OnEvaluationComplete(context.Context, string, string, string, time.Duration) {
}
func (NoopDetectorHooks) OnDirectoryComplete(context.Context, string) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Bundle
// =============================================================================

// Hooks bundles the hook sets a run reports to.
type Hooks struct {
	Detector DetectorHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// WithDefaults returns h with every nil member replaced by its no-op.
func (h Hooks) WithDefaults() Hooks {
	if h.Detector == nil {
		h.Detector = NoopDetectorHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.HTTP == nil {
		h.HTTP = NoopHTTPHooks{}
	}
	return h
}
