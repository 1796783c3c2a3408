// Package pubspec reads Dart pubspec.lock files.
//
// The lock file records every package but not which package pulled in
// which, so the graph is flat: direct and transitive packages all hang off
// the root, transitive ones marked as such. Dev dependencies are left out.
package pubspec

import (
	"context"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
)

// Forge is the namespace of Dart package identifiers.
const Forge = "pub"

const (
	directMain = "direct main"
	directDev  = "direct dev"
	transitive = "transitive"
)

type lockFile struct {
	Packages map[string]lockPackage `yaml:"packages"`
	SDKs     map[string]string      `yaml:"sdks"`
}

type lockPackage struct {
	Dependency string `yaml:"dependency"`
	Source     string `yaml:"source"`
	Version    string `yaml:"version"`
}

type manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Detectable is the pubspec-lock handler.
type Detectable struct {
	lockPath     string
	manifestPath string
}

func New() *Detectable { return &Detectable{} }

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.lockPath, _ = req.File("pubspec.lock")
	d.manifestPath, _ = req.OptionalFile("pubspec.yaml")
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
	if err := decode(d.lockPath, &lock); err != nil {
		return detect.Errored(err)
	}
	if len(lock.Packages) == 0 {
		return detect.Failed("pubspec.lock declares no packages")
	}

	var m manifest
	if d.manifestPath != "" {
		if err := decode(d.manifestPath, &m); err != nil {
			return detect.Errored(err)
		}
	}

	g := dag.New(nil)
	for _, name := range slices.Sorted(maps.Keys(lock.Packages)) {
		p := lock.Packages[name]
		if p.Dependency == directDev {
			continue
		}
		node := dag.Dependency(Forge, name, p.Version)
		node.Meta = dag.Metadata{"source": p.Source}
		if p.Dependency == transitive {
			node.Meta["transitive"] = true
		}
		if _, err := g.EnsureNode(node); err == nil {
			_ = g.AddRoot(node.ID)
		}
	}
	return detect.Succeeded(g, detect.WithProject(m.Name, m.Version))
}

func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	return nil
}
