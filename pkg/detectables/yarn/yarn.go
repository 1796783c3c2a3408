// Package yarn extracts dependency graphs from yarn.lock files.
//
// The lock file supplies resolved versions and the edges between packages;
// package.json supplies the project identity and which packages are direct
// dependencies. Both the classic (v1) and berry (v2+) formats are read by
// the same [lockfile.Parser].
package yarn

import (
	"cmp"
	"context"
	"encoding/json"
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/lockfile"
)

// Forge is the namespace of yarn package identifiers.
const Forge = "npmjs"

const (
	lockFile    = "yarn.lock"
	packageFile = "package.json"
)

// Options configures the handler.
type Options struct {
	IncludeDev bool
}

// Detectable is the yarn-lock handler.
type Detectable struct {
	opts     Options
	lockPath string
	pkgPath  string
}

// New returns a handler for one directory.
func New(opts Options) *Detectable {
	return &Detectable{opts: opts}
}

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.lockPath, _ = req.File(lockFile)
	d.pkgPath, _ = req.File(packageFile)
	return req.Result()
}

func (d *Detectable) Extractable(*detect.Environment) detect.Result {
	return detect.Passed{}
}

// Inputs implements detect.Fingerprinted.
func (d *Detectable) Inputs() []string {
	return []string{d.lockPath, d.pkgPath}
}

func (d *Detectable) Extract(_ context.Context, _ *detect.Environment) *detect.Extraction {
	pkg, err := ReadPackageJSON(d.pkgPath)
	if err != nil {
		return detect.Errored(err)
	}

	f, err := os.Open(d.lockPath)
	if err != nil {
		return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", lockFile))
	}
	defer f.Close()
	lock, err := lockfile.NewParser().Parse(f)
	if err != nil {
		return detect.Errored(err)
	}
	if len(lock.Entries) == 0 {
		return detect.Failed("%s contains no entries", lockFile)
	}

	g, missing := BuildGraph(lock, pkg.Direct(d.opts.IncludeDev))
	opts := []detect.ExtractionOption{detect.WithProject(pkg.Name, pkg.Version)}
	for _, m := range missing {
		opts = append(opts, detect.WithDiagnostic(detect.Warning("%s is not resolved by %s", m, lockFile)))
	}
	if lock.Skipped > 0 {
		opts = append(opts, detect.WithDiagnostic(detect.Warning("%d malformed entries skipped", lock.Skipped)))
	}
	return detect.Succeeded(g, opts...)
}

// BuildGraph links the direct dependencies to the root and follows every
// entry's dependency list through the lock file. It returns the
// name@range pairs the lock file could not resolve.
func BuildGraph(lock *lockfile.Lockfile, direct []lockfile.Dependency) (*dag.DAG, []string) {
	g := dag.New(nil)
	var missing []string
	visited := make(map[string]bool)

	var visit func(e lockfile.Entry) string
	visit = func(e lockfile.Entry) string {
		node := dag.Dependency(Forge, e.Name(), e.Version)
		if visited[node.ID] {
			return node.ID
		}
		visited[node.ID] = true
		_, _ = g.EnsureNode(node)
		for _, dep := range e.Dependencies {
			child, ok := lookup(lock, dep)
			if !ok {
				if !dep.Optional {
					missing = append(missing, dep.Name+"@"+dep.VersionRange)
				}
				continue
			}
			_ = g.Link(node.ID, visit(child))
		}
		return node.ID
	}

	for _, dep := range direct {
		e, ok := lookup(lock, dep)
		if !ok {
			if !dep.Optional {
				missing = append(missing, dep.Name+"@"+dep.VersionRange)
			}
			continue
		}
		_ = g.AddRoot(visit(e))
	}
	slices.Sort(missing)
	return g, slices.Compact(missing)
}

// lookup resolves dep, trying the berry "npm:" protocol prefix when the
// bare range is not an identity.
func lookup(lock *lockfile.Lockfile, dep lockfile.Dependency) (lockfile.Entry, bool) {
	if e, ok := lock.Lookup(dep.Name, dep.VersionRange); ok {
		return e, true
	}
	return lock.Lookup(dep.Name, "npm:"+dep.VersionRange)
}

// PackageJSON is the subset of package.json the JavaScript handlers read.
type PackageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// ReadPackageJSON parses the package.json at path.
func ReadPackageJSON(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", packageFile)
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", packageFile)
	}
	return &pkg, nil
}

// Direct returns the declared dependencies sorted by name. Dev
// dependencies are included on request; optional ones are marked.
func (p *PackageJSON) Direct(includeDev bool) []lockfile.Dependency {
	var out []lockfile.Dependency
	add := func(m map[string]string, optional bool) {
		for name, rng := range m {
			out = append(out, lockfile.Dependency{Name: name, VersionRange: rng, Optional: optional})
		}
	}
	add(p.Dependencies, false)
	add(p.OptionalDependencies, true)
	if includeDev {
		add(p.DevDependencies, false)
	}
	slices.SortFunc(out, func(a, b lockfile.Dependency) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.VersionRange, b.VersionRange))
	})
	return out
}
