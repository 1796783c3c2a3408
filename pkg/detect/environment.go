package detect

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/matzehuels/stackscan/pkg/executable"
)

// FileFinder probes the filesystem.
type FileFinder interface {
	// Find returns the path of the first entry in dir matching pattern.
	// Pattern is a relative path or a glob over the entries of dir.
	Find(dir, pattern string) (string, bool)
	// FindAll returns every entry in dir matching pattern, sorted.
	FindAll(dir, pattern string) []string
}

// ExecutableResolver locates external tools.
type ExecutableResolver interface {
	Resolve(name string) (string, bool)
}

// ProcessRunner runs external tools.
type ProcessRunner interface {
	Run(ctx context.Context, cmd executable.Command) (executable.Output, error)
}

// Environment is what a handler sees of the directory being evaluated.
type Environment struct {
	Dir         string // absolute directory under evaluation
	Root        string // absolute scan root
	Depth       int    // distance from Root, 0 for the root itself
	Files       FileFinder
	Executables ExecutableResolver
	Runner      ProcessRunner
}

// RelDir returns Dir relative to Root, "." for the root itself.
func (e *Environment) RelDir() string {
	rel, err := filepath.Rel(e.Root, e.Dir)
	if err != nil {
		return e.Dir
	}
	return filepath.ToSlash(rel)
}

// OSFileFinder implements FileFinder on the local filesystem.
type OSFileFinder struct{}

// Find implements FileFinder.
func (f OSFileFinder) Find(dir, pattern string) (string, bool) {
	if !isGlob(pattern) {
		path := filepath.Join(dir, filepath.FromSlash(pattern))
		if _, err := os.Stat(path); err != nil {
			return "", false
		}
		return path, true
	}
	matches := f.FindAll(dir, pattern)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// FindAll implements FileFinder. Glob patterns match entry names directly
// inside dir; they do not descend.
func (OSFileFinder) FindAll(dir, pattern string) []string {
	if !isGlob(pattern) {
		path := filepath.Join(dir, filepath.FromSlash(pattern))
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		return []string{path}
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if g.Match(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(out)
	return out
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
