// Package detectables registers the built-in handlers.
//
// Each subpackage implements detect.Detectable for one ecosystem. [Rules]
// wraps them in detector rules with their metadata and precedence:
//
//	set, err := detectables.RuleSet(detectables.Options{
//	    Bazel: bazel.Options{Target: "//src:app"},
//	})
package detectables

import (
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/detectables/bazel"
	"github.com/matzehuels/stackscan/pkg/detectables/cargo"
	"github.com/matzehuels/stackscan/pkg/detectables/gomod"
	"github.com/matzehuels/stackscan/pkg/detectables/govendor"
	"github.com/matzehuels/stackscan/pkg/detectables/npm"
	"github.com/matzehuels/stackscan/pkg/detectables/pubspec"
	"github.com/matzehuels/stackscan/pkg/detectables/yarn"
	"github.com/matzehuels/stackscan/pkg/detector"
)

// Options carries per-handler settings.
type Options struct {
	Bazel bazel.Options
	Yarn  yarn.Options
	NPM   npm.Options
	Go    gomod.Options
}

// Rules returns every built-in rule.
func Rules(opts Options) []detector.Rule {
	return []detector.Rule{
		{
			Name:         "bazel",
			Group:        "bazel",
			Language:     "various",
			Forge:        bazel.Forge,
			Requirements: "File: WORKSPACE, WORKSPACE.bazel or MODULE.bazel. Property: bazel.target. Executable: bazel.",
			New:          func() detect.Detectable { return bazel.New(opts.Bazel) },
		},
		{
			Name:         "yarn-lock",
			Group:        "yarn",
			Language:     "Node JS",
			Forge:        yarn.Forge,
			Requirements: "Files: yarn.lock, package.json.",
			Buildless:    true,
			New:          func() detect.Detectable { return yarn.New(opts.Yarn) },
		},
		{
			Name:         "npm-package-json",
			Group:        "npm",
			Language:     "Node JS",
			Forge:        yarn.Forge,
			Requirements: "File: package.json.",
			Buildless:    true,
			YieldsTo:     []string{"yarn-lock"},
			Priority:     10,
			New:          func() detect.Detectable { return npm.New(opts.NPM) },
		},
		{
			Name:         "cargo-lock",
			Group:        "cargo",
			Language:     "Rust",
			Forge:        cargo.Forge,
			Requirements: "File: Cargo.lock.",
			Buildless:    true,
			New:          func() detect.Detectable { return cargo.New() },
		},
		{
			Name:         "go-mod-graph",
			Group:        "golang",
			Language:     "Golang",
			Forge:        gomod.Forge,
			Requirements: "File: go.mod. Executable: go.",
			New:          func() detect.Detectable { return gomod.New(opts.Go) },
		},
		{
			Name:         "go-vendor",
			Group:        "golang",
			Language:     "Golang",
			Forge:        govendor.Forge,
			Requirements: "File: vendor/vendor.json.",
			Buildless:    true,
			YieldsTo:     []string{"go-mod-graph"},
			New:          func() detect.Detectable { return govendor.New() },
		},
		{
			Name:         "pubspec-lock",
			Group:        "dart",
			Language:     "Dart",
			Forge:        pubspec.Forge,
			Requirements: "File: pubspec.lock.",
			Buildless:    true,
			New:          func() detect.Detectable { return pubspec.New() },
		},
	}
}

// RuleSet returns the built-in rules ordered by precedence.
func RuleSet(opts Options) (*detector.RuleSet, error) {
	return detector.NewRuleSet(Rules(opts)...)
}
