// Package npm reads the declared dependencies of a package.json. It is the
// fallback for JavaScript projects without a lock file: versions are the
// declared ranges, and the graph has no transitive edges.
package npm

import (
	"context"
	"strings"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detectables/yarn"
)

// Options configures the handler.
type Options struct {
	IncludeDev  bool
	IncludePeer bool
}

// Detectable is the npm-package-json handler.
type Detectable struct {
	opts    Options
	pkgPath string
}

func New(opts Options) *Detectable {
	return &Detectable{opts: opts}
}

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.pkgPath, _ = req.File("package.json")
	return req.Result()
}

func (d *Detectable) Extractable(*detect.Environment) detect.Result {
	return detect.Passed{}
}

// Inputs implements detect.Fingerprinted.
func (d *Detectable) Inputs() []string { return []string{d.pkgPath} }

func (d *Detectable) Extract(context.Context, *detect.Environment) *detect.Extraction {
	pkg, err := yarn.ReadPackageJSON(d.pkgPath)
	if err != nil {
		return detect.Errored(err)
	}

	g := dag.New(nil)
	for _, dep := range pkg.Direct(d.opts.IncludeDev) {
		node := dag.Dependency(yarn.Forge, dep.Name, cleanRange(dep.VersionRange))
		if dep.Optional {
			node.Meta = dag.Metadata{"optional": true}
		}
		if _, err := g.EnsureNode(node); err == nil {
			_ = g.AddRoot(node.ID)
		}
	}
	if d.opts.IncludePeer {
		for name, rng := range pkg.PeerDependencies {
			node := dag.Dependency(yarn.Forge, name, cleanRange(rng))
			node.Meta = dag.Metadata{"peer": true}
			if _, err := g.EnsureNode(node); err == nil {
				_ = g.AddRoot(node.ID)
			}
		}
	}
	return detect.Succeeded(g, detect.WithProject(pkg.Name, pkg.Version))
}

// cleanRange strips the operators of a simple range so "^4.17.21" reports
// as 4.17.21. Compound ranges are kept verbatim.
func cleanRange(r string) string {
	r = strings.TrimSpace(r)
	if strings.ContainsAny(r, " |") {
		return r
	}
	return strings.TrimLeft(r, "^~=v")
}
