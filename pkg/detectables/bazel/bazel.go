// Package bazel extracts Maven dependencies declared in Bazel workspaces.
//
// Two declaration styles are supported. Dependencies pulled in through
// rules_jvm_external (maven_install) are found by a cquery over the
// target's dependencies whose build output carries maven_coordinates tags.
// Legacy maven_jar repositories are found by querying the external jar
// repositories the target depends on and then each repository's rule for
// its artifact attribute. Both command outputs are reduced to coordinates
// by step pipelines.
package bazel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detectables/internal/tool"
	"github.com/matzehuels/stackscan/pkg/executable"
	"github.com/matzehuels/stackscan/pkg/steps"
)

// Forge is the namespace of Maven coordinates.
const Forge = "maven"

// TargetProperty is the configuration key naming the target to inspect.
const TargetProperty = "bazel.target"

// Dependency rule kinds.
const (
	RuleMavenInstall = "maven_install"
	RuleMavenJar     = "maven_jar"
)

// Options configures the handler.
type Options struct {
	Target  string
	Timeout time.Duration
	// Rules selects the dependency rule kinds to query. Empty means all.
	Rules []string
}

var (
	// cquery --output build prints one rule per block; the tags attribute
	// of imported jars carries the coordinates.
	installPipeline = steps.MustNew([]steps.Step{
		steps.MustStep(steps.Filter, `^\s*tags\s*=.*maven_coordinates=`),
		steps.MustStep(steps.Extract, `maven_coordinates=([^"]+)`),
	})

	// "@com_google_guava_guava//jar:jar" becomes "com_google_guava_guava".
	jarRepoPipeline = steps.MustNew([]steps.Step{
		steps.MustStep(steps.Filter, `^@\w+//`),
		steps.MustStep(steps.Edit, `^@`),
		steps.MustStep(steps.Edit, `//.*$`),
	})

	jarArtifactPipeline = steps.MustNew([]steps.Step{
		steps.MustStep(steps.Filter, `^\s*artifact\s*=`),
		steps.MustStep(steps.Extract, `artifact\s*=\s*"([^"]+)"`),
	})
)

// Detectable is the bazel handler.
type Detectable struct {
	opts      Options
	bazelPath string
}

func New(opts Options) *Detectable {
	return &Detectable{opts: opts}
}

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	req.EitherFile("WORKSPACE", "WORKSPACE.bazel", "MODULE.bazel")
	req.Property(TargetProperty, d.opts.Target)
	return req.Result()
}

func (d *Detectable) Extractable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	d.bazelPath, _ = req.Executable("bazel")
	return req.Result()
}

func (d *Detectable) Extract(ctx context.Context, env *detect.Environment) *detect.Extraction {
	var coords []string
	if d.enabled(RuleMavenInstall) {
		found, x := d.mavenInstall(ctx, env)
		if x != nil {
			return x
		}
		coords = append(coords, found...)
	}
	if d.enabled(RuleMavenJar) {
		found, x := d.mavenJar(ctx, env)
		if x != nil {
			return x
		}
		coords = append(coords, found...)
	}

	g := dag.New(nil)
	var opts []detect.ExtractionOption
	for _, c := range coords {
		node, ok := ParseCoordinates(c)
		if !ok {
			opts = append(opts, detect.WithDiagnostic(detect.Warning("unrecognised maven coordinates %q", c)))
			continue
		}
		if _, err := g.EnsureNode(node); err == nil {
			_ = g.AddRoot(node.ID)
		}
	}
	return detect.Succeeded(g, opts...)
}

func (d *Detectable) enabled(rule string) bool {
	return len(d.opts.Rules) == 0 || slices.Contains(d.opts.Rules, rule)
}

func (d *Detectable) mavenInstall(ctx context.Context, env *detect.Environment) ([]string, *detect.Extraction) {
	query := fmt.Sprintf("kind(j.*import, deps(%s))", d.opts.Target)
	lines, x := tool.Run(ctx, env, d.command("cquery", "--noimplicit_deps", query, "--output", "build"))
	if x != nil {
		return nil, x
	}
	return installPipeline.Run(lines), nil
}

func (d *Detectable) mavenJar(ctx context.Context, env *detect.Environment) ([]string, *detect.Extraction) {
	query := fmt.Sprintf("filter('@.*:jar', deps(%s))", d.opts.Target)
	lines, x := tool.Run(ctx, env, d.command("query", query))
	if x != nil {
		return nil, x
	}
	repos := jarRepoPipeline.Run(lines)
	slices.Sort(repos)
	repos = slices.Compact(repos)

	var coords []string
	for _, repo := range repos {
		if ctx.Err() != nil {
			return nil, detect.Errored(ctx.Err())
		}
		rule := fmt.Sprintf("kind(maven_jar, //external:%s)", repo)
		out, x := tool.Run(ctx, env, d.command("query", rule, "--output", "build"))
		if x != nil {
			return nil, x
		}
		coords = append(coords, jarArtifactPipeline.Run(out)...)
	}
	return coords, nil
}

func (d *Detectable) command(args ...string) executable.Command {
	return executable.Command{Path: d.bazelPath, Args: args, Timeout: d.opts.Timeout}
}

// ParseCoordinates reads group:artifact[:packaging[:classifier]]:version.
func ParseCoordinates(s string) (dag.Node, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 5 || slices.Contains(parts, "") {
		return dag.Node{}, false
	}
	name := parts[0] + ":" + parts[1]
	return dag.Dependency(Forge, name, parts[len(parts)-1]), true
}
