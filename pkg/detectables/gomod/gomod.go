// Package gomod builds Go module graphs from `go mod graph`.
//
// The go tool is asked for the main module (`go list -m`) and then for the
// full requirement graph. Lines are cleaned with a step pipeline before
// being parsed into edges: malformed lines are filtered out and the
// "+incompatible" suffix is stripped from versions.
package gomod

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detectables/internal/tool"
	"github.com/matzehuels/stackscan/pkg/executable"
	"github.com/matzehuels/stackscan/pkg/steps"
)

// Forge is the namespace of Go module identifiers.
const Forge = "golang"

// Options configures the handler.
type Options struct {
	Timeout time.Duration
}

var graphPipeline = steps.MustNew([]steps.Step{
	steps.MustStep(steps.Filter, `^\S+ \S+@\S+$`),
	steps.MustStep(steps.Edit, `\+incompatible`),
})

// Detectable is the go-mod-graph handler.
type Detectable struct {
	opts   Options
	goMod  string
	goSum  string
	goPath string
}

func New(opts Options) *Detectable {
	return &Detectable{opts: opts}
}

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.goMod, _ = req.File("go.mod")
	d.goSum, _ = req.OptionalFile("go.sum")
	return req.Result()
}

func (d *Detectable) Extractable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.goPath, _ = req.Executable("go")
	return req.Result()
}

// Inputs implements detect.Fingerprinted.
func (d *Detectable) Inputs() []string {
	if d.goSum == "" {
		return []string{d.goMod}
	}
	return []string{d.goMod, d.goSum}
}

func (d *Detectable) Extract(ctx context.Context, env *detect.Environment) *detect.Extraction {
	modules, x := tool.Run(ctx, env, d.command("list", "-m"))
	if x != nil {
		return x
	}
	if len(modules) == 0 {
		return detect.Failed("go list -m reported no main module")
	}
	main := strings.TrimSpace(modules[0])

	lines, x := tool.Run(ctx, env, d.command("mod", "graph"))
	if x != nil {
		return x
	}
	g := ParseGraph(graphPipeline.Run(lines), modules)
	return detect.Succeeded(g, detect.WithProject(main, ""))
}

func (d *Detectable) command(args ...string) executable.Command {
	return executable.Command{Path: d.goPath, Args: args, Timeout: d.opts.Timeout}
}

// ParseGraph turns "parent child@version" lines into a graph. Parents
// without a version are main modules; their children become roots.
func ParseGraph(lines []string, mainModules []string) *dag.DAG {
	g := dag.New(nil)
	isMain := make(map[string]bool, len(mainModules))
	for _, m := range mainModules {
		isMain[strings.TrimSpace(m)] = true
	}

	ensure := func(token string) string {
		name, version, _ := strings.Cut(token, "@")
		n, _ := g.EnsureNode(dag.Dependency(Forge, name, version))
		return n.ID
	}

	for _, line := range lines {
		parent, child, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		to := ensure(child)
		if isMain[parent] || !strings.Contains(parent, "@") {
			_ = g.AddRoot(to)
			continue
		}
		_ = g.Link(ensure(parent), to)
	}
	return g
}
