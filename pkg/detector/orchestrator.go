package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackscan/pkg/cache"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/executable"
	graphio "github.com/matzehuels/stackscan/pkg/io"
	"github.com/matzehuels/stackscan/pkg/observability"
)

const (
	// DefaultMaxDepth is how far below the root directories are evaluated.
	DefaultMaxDepth = 0

	// DefaultCacheTTL bounds the age of cached extractions.
	DefaultCacheTTL = 7 * 24 * time.Hour

	cacheKeyType = "extraction"
)

// DefaultExclusions are directory patterns skipped unless overridden.
var DefaultExclusions = []string{".git", ".hg", ".svn", "node_modules", "bazel-*"}

// Orchestrator evaluates a RuleSet over a source tree.
type Orchestrator struct {
	rules       []Rule
	logger      *log.Logger
	hooks       observability.Hooks
	cache       cache.Cache
	keyer       cache.Keyer
	cacheTTL    time.Duration
	maxDepth    int
	exclusions  []glob.Glob
	parallelism int
	files       detect.FileFinder
	executables detect.ExecutableResolver
	runner      detect.ProcessRunner
	err         error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks sets the progress hooks.
func WithHooks(h observability.Hooks) Option {
	return func(o *Orchestrator) { o.hooks = h.WithDefaults() }
}

// WithCache enables the extraction cache for handlers that declare their
// inputs. A nil keyer uses cache.NewDefaultKeyer.
func WithCache(c cache.Cache, k cache.Keyer, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache, o.keyer, o.cacheTTL = c, k, ttl
		if k == nil {
			o.keyer = cache.NewDefaultKeyer("1")
		}
	}
}

// WithMaxDepth limits the walk. Zero evaluates only the root.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) { o.maxDepth = depth }
}

// WithExclusions replaces the excluded directory patterns. A pattern
// matches either a directory's name or its slash separated path relative
// to the root, for example "node_modules" or "tests/**".
func WithExclusions(patterns ...string) Option {
	return func(o *Orchestrator) {
		o.exclusions = o.exclusions[:0]
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				o.err = errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid exclusion pattern %q", p)
				return
			}
			o.exclusions = append(o.exclusions, g)
		}
	}
}

// WithParallelism bounds how many directories are evaluated at once.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithFiles replaces the filesystem probe.
func WithFiles(f detect.FileFinder) Option {
	return func(o *Orchestrator) { o.files = f }
}

// WithExecutables replaces the executable resolver.
func WithExecutables(r detect.ExecutableResolver) Option {
	return func(o *Orchestrator) { o.executables = r }
}

// WithRunner replaces the process runner.
func WithRunner(r detect.ProcessRunner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// New creates an Orchestrator for rules.
func New(rules *RuleSet, opts ...Option) (*Orchestrator, error) {
	if rules == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no rule set")
	}
	o := &Orchestrator{
		rules:       rules.Rules(),
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		hooks:       observability.Hooks{}.WithDefaults(),
		maxDepth:    DefaultMaxDepth,
		parallelism: runtime.NumCPU(),
		files:       detect.OSFileFinder{},
		runner:      &executable.Runner{},
	}
	WithExclusions(DefaultExclusions...)(o)
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.maxDepth < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "max depth must not be negative")
	}
	if o.executables == nil {
		r, err := executable.NewResolver()
		if err != nil {
			return nil, err
		}
		o.executables = r
	}
	return o, nil
}

type walkedDir struct {
	abs   string
	rel   string
	depth int
}

// Run evaluates every rule against every directory under root. The report
// is returned even when ctx is cancelled part way, together with ctx.Err.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", root)
	}

	dirs, err := o.walk(ctx, root)
	if err != nil {
		return nil, err
	}
	o.hooks.Detector.OnWalkComplete(ctx, len(dirs))
	o.logger.Debug("walked source tree", "root", root, "directories", len(dirs))

	results := make([][]Evaluation, len(dirs))
	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, d := range dirs {
		g.Go(func() error {
			results[i] = o.evaluateDir(ctx, root, d)
			o.hooks.Detector.OnDirectoryComplete(ctx, d.rel)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Root: root, Directories: make([]string, len(dirs))}
	for i, d := range dirs {
		report.Directories[i] = d.rel
		report.Evaluations = append(report.Evaluations, results[i]...)
	}
	report.Duration = time.Since(start)

	o.logger.Info("detection complete",
		"directories", len(dirs),
		"succeeded", len(report.Succeeded()),
		"failed", len(report.Failures()),
		"duration", report.Duration)
	return report, ctx.Err()
}

func (o *Orchestrator) walk(ctx context.Context, root string) ([]walkedDir, error) {
	var dirs []walkedDir
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			o.logger.Warn("skipping unreadable directory", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, "/") + 1
			if depth > o.maxDepth || o.excluded(rel, d.Name()) {
				return fs.SkipDir
			}
		}
		dirs = append(dirs, walkedDir{abs: path, rel: rel, depth: depth})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "walk %s", root)
	}
	return dirs, nil
}

func (o *Orchestrator) excluded(rel, name string) bool {
	for _, g := range o.exclusions {
		if g.Match(name) || g.Match(rel) {
			return true
		}
	}
	return false
}

// evaluateDir runs every rule against one directory in precedence order.
func (o *Orchestrator) evaluateDir(ctx context.Context, root string, d walkedDir) []Evaluation {
	env := &detect.Environment{
		Dir:         d.abs,
		Root:        root,
		Depth:       d.depth,
		Files:       o.files,
		Executables: o.executables,
		Runner:      o.runner,
	}
	applied := make(map[string]bool)
	evals := make([]Evaluation, 0, len(o.rules))
	for _, rule := range o.rules {
		var ev Evaluation
		if ctx.Err() != nil {
			ev = newEvaluation(rule, d)
			ev.Status = StatusCancelled
		} else {
			ev = o.evaluate(ctx, rule, env, d, applied)
		}
		if ev.Status.Attempted() && ev.Applicable.Passed() {
			applied[rule.Name] = true
		}
		o.hooks.Detector.OnEvaluationComplete(ctx, rule.Name, d.rel, string(ev.Status), ev.Duration)
		if ev.Status != StatusNotApplicable {
			o.logger.Debug("evaluated", "rule", rule.Name, "dir", d.rel, "status", ev.Status, "duration", ev.Duration)
		}
		evals = append(evals, ev)
	}
	return evals
}

// notApplicableStatus maps a failed applicability result to the status the
// report shows for it.
func notApplicableStatus(r detect.Result) Status {
	switch r.Code() {
	case errors.ErrCodeFileNotFound:
		return StatusNotApplicable
	case errors.ErrCodePropertyInsufficient:
		return StatusPropertyInsufficient
	case errors.ErrCodeExecutableNotFound:
		return StatusNotExtractable
	default:
		return StatusException
	}
}

func newEvaluation(rule Rule, d walkedDir) Evaluation {
	return Evaluation{Rule: rule.Name, Group: rule.Group, Forge: rule.Forge, Dir: d.rel, Depth: d.depth}
}

func (o *Orchestrator) evaluate(ctx context.Context, rule Rule, env *detect.Environment, d walkedDir, applied map[string]bool) (ev Evaluation) {
	start := time.Now()
	ev = newEvaluation(rule, d)
	defer func() { ev.Duration = time.Since(start) }()

	handler := rule.New()

	ev.Applicable = safePhase(func() detect.Result { return handler.Applicable(env) })
	if !ev.Applicable.Passed() {
		ev.Status = notApplicableStatus(ev.Applicable)
		return ev
	}

	for _, preferred := range rule.YieldsTo {
		if applied[preferred] {
			ev.Status, ev.YieldedTo = StatusYielded, preferred
			return ev
		}
	}

	ev.Extractable = safePhase(func() detect.Result { return handler.Extractable(env) })
	if !ev.Extractable.Passed() {
		if _, ok := ev.Extractable.(detect.Exception); ok {
			ev.Status = StatusException
		} else {
			ev.Status = StatusNotExtractable
		}
		return ev
	}

	ev.Extraction, ev.Cached = o.extract(ctx, rule, handler, env)
	switch ev.Extraction.Outcome() {
	case detect.OutcomeSuccess:
		ev.Status = StatusSucceeded
	case detect.OutcomeFailure:
		ev.Status = StatusFailed
	default:
		ev.Status = StatusException
	}
	return ev
}

// safePhase runs a lifecycle phase, turning a panic or a nil result into
// an exception result.
func safePhase(phase func() detect.Result) (res detect.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = detect.Exception{Err: errors.New(errors.ErrCodeInternal, "panic: %v", r)}
		}
	}()
	res = phase()
	if res == nil {
		res = detect.Exception{Err: errors.New(errors.ErrCodeInternal, "phase returned no result")}
	}
	return res
}

func safeExtract(ctx context.Context, handler detect.Detectable, env *detect.Environment) (x *detect.Extraction) {
	defer func() {
		if r := recover(); r != nil {
			x = detect.Errored(errors.New(errors.ErrCodeInternal, "panic: %v", r))
		}
	}()
	x = handler.Extract(ctx, env)
	if x == nil {
		x = detect.Errored(errors.New(errors.ErrCodeInternal, "extract returned no extraction"))
	}
	return x
}

func (o *Orchestrator) extract(ctx context.Context, rule Rule, handler detect.Detectable, env *detect.Environment) (*detect.Extraction, bool) {
	fp, ok := handler.(detect.Fingerprinted)
	if !ok || o.cache == nil {
		return safeExtract(ctx, handler, env), false
	}
	sum, err := cache.HashFiles(env.Dir, fp.Inputs())
	if err != nil {
		o.logger.Debug("cannot fingerprint inputs", "rule", rule.Name, "dir", env.RelDir(), "err", err)
		return safeExtract(ctx, handler, env), false
	}
	key := o.keyer.ExtractionKey(rule.Name, env.RelDir(), sum)

	if x, ok := o.load(ctx, key); ok {
		o.hooks.Cache.OnCacheHit(ctx, cacheKeyType)
		return x, true
	}
	o.hooks.Cache.OnCacheMiss(ctx, cacheKeyType)

	x := safeExtract(ctx, handler, env)
	if x.Succeeded() {
		o.store(ctx, key, x)
	}
	return x, false
}

type cachedExtraction struct {
	Graph       graphio.Graph       `json:"graph"`
	Project     *detect.NameVersion `json:"project,omitempty"`
	Diagnostics []detect.Diagnostic `json:"diagnostics,omitempty"`
}

func (o *Orchestrator) load(ctx context.Context, key string) (*detect.Extraction, bool) {
	var data []byte
	var hit bool
	err := cache.DefaultPolicy.Run(ctx, func() error {
		var err error
		data, hit, err = o.cache.Get(ctx, key)
		return err
	})
	if err != nil {
		o.logger.Debug("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var c cachedExtraction
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return nil, false
	}
	g, err := graphio.Decode(c.Graph)
	if err != nil {
		return nil, false
	}
	var opts []detect.ExtractionOption
	if c.Project != nil {
		opts = append(opts, detect.WithProject(c.Project.Name, c.Project.Version))
	}
	for _, d := range c.Diagnostics {
		opts = append(opts, detect.WithDiagnostic(d))
	}
	return detect.Succeeded(g, opts...), true
}

func (o *Orchestrator) store(ctx context.Context, key string, x *detect.Extraction) {
	c := cachedExtraction{Graph: graphio.Encode(x.Graph()), Diagnostics: x.Diagnostics()}
	if p, ok := x.Project(); ok {
		c.Project = &p
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	err = cache.DefaultPolicy.Run(ctx, func() error {
		return o.cache.Set(ctx, key, data, o.cacheTTL)
	})
	if err != nil {
		o.logger.Debug("cache write failed", "err", err)
		return
	}
	o.hooks.Cache.OnCacheSet(ctx, cacheKeyType, len(data))
}
