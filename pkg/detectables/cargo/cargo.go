// Package cargo extracts dependency graphs from Cargo.lock files.
package cargo

import (
	"context"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
)

// Forge is the namespace of crate identifiers.
const Forge = "crates"

type lockFile struct {
	Version  int           `toml:"version"`
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

type manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// Detectable is the cargo-lock handler.
type Detectable struct {
	lockPath     string
	manifestPath string
}

func New() *Detectable { return &Detectable{} }

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.lockPath, _ = req.File("Cargo.lock")
	d.manifestPath, _ = req.OptionalFile("Cargo.toml")
	return req.Result()
}

func (d *Detectable) Extractable(*detect.Environment) detect.Result {
	return detect.Passed{}
}

// Inputs implements detect.Fingerprinted.
func (d *Detectable) Inputs() []string {
	if d.manifestPath == "" {
		return []string{d.lockPath}
	}
	return []string{d.lockPath, d.manifestPath}
}

func (d *Detectable) Extract(context.Context, *detect.Environment) *detect.Extraction {
	var lock lockFile
	if _, err := toml.DecodeFile(d.lockPath, &lock); err != nil {
		return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "parse Cargo.lock"))
	}
	if len(lock.Packages) == 0 {
		return detect.Failed("Cargo.lock declares no packages")
	}

	var project detect.NameVersion
	if d.manifestPath != "" {
		data, err := os.ReadFile(d.manifestPath)
		if err != nil {
			return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "read Cargo.toml"))
		}
		var m manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "parse Cargo.toml"))
		}
		project = detect.NameVersion{Name: m.Package.Name, Version: m.Package.Version}
	}

	g, unresolved := buildGraph(lock.Packages, project)
	opts := []detect.ExtractionOption{detect.WithProject(project.Name, project.Version)}
	for _, u := range unresolved {
		opts = append(opts, detect.WithDiagnostic(detect.Warning("dependency %q does not match a locked package", u)))
	}
	return detect.Succeeded(g, opts...)
}

// buildGraph links locked packages by their dependency lists. When the
// project package is locked, its dependencies become the roots; otherwise
// every package nothing depends on is a root.
func buildGraph(pkgs []lockPackage, project detect.NameVersion) (*dag.DAG, []string) {
	g := dag.New(nil)
	byName := make(map[string][]lockPackage)
	for _, p := range pkgs {
		byName[p.Name] = append(byName[p.Name], p)
	}
	isProject := func(p lockPackage) bool {
		return project.Name != "" && p.Name == project.Name && p.Source == ""
	}

	for _, p := range pkgs {
		if !isProject(p) {
			_, _ = g.EnsureNode(dag.Dependency(Forge, p.Name, p.Version))
		}
	}

	var unresolved []string
	projectLocked := false
	for _, p := range pkgs {
		from := dag.ExternalID(Forge, p.Name, p.Version)
		if isProject(p) {
			projectLocked = true
			from = dag.RootID
		}
		for _, ref := range p.Dependencies {
			dep, ok := resolve(byName, ref)
			if !ok {
				unresolved = append(unresolved, ref)
				continue
			}
			to := dag.ExternalID(Forge, dep.Name, dep.Version)
			if from == dag.RootID {
				_ = g.AddRoot(to)
			} else {
				_ = g.Link(from, to)
			}
		}
	}

	if !projectLocked {
		for _, n := range g.Sources() {
			_ = g.AddRoot(n.ID)
		}
	}
	return g, unresolved
}

// resolve matches a dependency reference of the form "name",
// "name version" or "name version (source)".
func resolve(byName map[string][]lockPackage, ref string) (lockPackage, bool) {
	fields := strings.Fields(ref)
	if len(fields) == 0 {
		return lockPackage{}, false
	}
	candidates := byName[fields[0]]
	if len(fields) == 1 {
		if len(candidates) == 1 {
			return candidates[0], true
		}
		return lockPackage{}, false
	}
	for _, c := range candidates {
		if c.Version == fields[1] {
			return c, true
		}
	}
	return lockPackage{}, false
}
