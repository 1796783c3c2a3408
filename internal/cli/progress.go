package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"github.com/matzehuels/stackscan/pkg/observability"
)

// scanProgress drives a progress bar from orchestrator events and counts
// cache activity for the summary. It implements the detector and cache
// hooks.
type scanProgress struct {
	w      io.Writer
	quiet  bool
	logger *log.Logger

	mu  sync.Mutex
	bar *progressbar.ProgressBar

	hits   atomic.Int64
	misses atomic.Int64
}

func newScanProgress(w io.Writer, quiet bool, logger *log.Logger) *scanProgress {
	return &scanProgress{w: w, quiet: quiet, logger: logger}
}

// hooks returns the observability hooks for one run.
func (p *scanProgress) hooks() observability.Hooks {
	return observability.Hooks{Detector: p, Cache: p, HTTP: httpLogHooks{logger: p.logger}}.WithDefaults()
}

func (p *scanProgress) OnWalkComplete(_ context.Context, dirs int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(dirs,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Scanning directories"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *scanProgress) OnEvaluationComplete(_ context.Context, rule, dir, status string, d time.Duration) {
	p.logger.Debug("evaluated", "rule", rule, "dir", dir, "status", status, "duration", d.Round(time.Millisecond))
}

func (p *scanProgress) OnDirectoryComplete(context.Context, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *scanProgress) OnCacheHit(context.Context, string)      { p.hits.Add(1) }
func (p *scanProgress) OnCacheMiss(context.Context, string)     { p.misses.Add(1) }
func (p *scanProgress) OnCacheSet(context.Context, string, int) {}

// finish closes the bar if the walk was interrupted before completion.
func (p *scanProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
}

// httpLogHooks logs collector traffic at debug level.
type httpLogHooks struct {
	logger *log.Logger
}

func (h httpLogHooks) OnRequest(context.Context, string, string, string) {}

func (h httpLogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("collector response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h httpLogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("collector request failed", "method", method, "host", host, "path", path, "error", err)
}
