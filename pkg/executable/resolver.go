package executable

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/maypok86/otter"
)

// resolverCapacity bounds the memoised lookups. A run only ever asks for a
// handful of tool names.
const resolverCapacity = 256

// Resolver finds executables by name. Results, including misses, are cached
// for the lifetime of the Resolver. It is safe for concurrent use.
type Resolver struct {
	overrides map[string]string
	lookPath  func(string) (string, error)
	cache     otter.Cache[string, string]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOverride pins name to an explicit path, typically from configuration
// (for example bazel.path). The path must exist and be executable.
func WithOverride(name, path string) ResolverOption {
	return func(r *Resolver) {
		if path != "" {
			r.overrides[name] = path
		}
	}
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) ResolverOption {
	return func(r *Resolver) { r.lookPath = fn }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	cache, err := otter.MustBuilder[string, string](resolverCapacity).Build()
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		overrides: make(map[string]string),
		lookPath:  exec.LookPath,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the absolute path of name, or false if it cannot be found.
func (r *Resolver) Resolve(name string) (string, bool) {
	if path, ok := r.cache.Get(name); ok {
		return path, path != ""
	}
	path := r.resolve(name)
	r.cache.Set(name, path)
	return path, path != ""
}

func (r *Resolver) resolve(name string) string {
	if override, ok := r.overrides[name]; ok {
		if isExecutable(override) {
			if abs, err := filepath.Abs(override); err == nil {
				return abs
			}
			return override
		}
		return ""
	}
	path, err := r.lookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Close releases the lookup cache.
func (r *Resolver) Close() { r.cache.Close() }

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
