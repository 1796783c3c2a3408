package detectables

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/detector"
)

type noExecutables struct{}

func (noExecutables) Resolve(string) (string, bool) { return "", false }

func TestRuleSetOrder(t *testing.T) {
	set, err := RuleSet(Options{})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, r := range set.Rules() {
		pos[r.Name] = i
	}
	assert.Len(t, pos, 7)
	assert.Equal(t, 0, pos["bazel"])
	assert.Less(t, pos["yarn-lock"], pos["npm-package-json"])
	assert.Less(t, pos["go-mod-graph"], pos["go-vendor"])
}

func TestBuildlessSelection(t *testing.T) {
	set, err := RuleSet(Options{})
	require.NoError(t, err)
	buildless, err := set.Select(detector.Selection{Buildless: true})
	require.NoError(t, err)

	_, ok := buildless.Rule("bazel")
	assert.False(t, ok)
	vendor, ok := buildless.Rule("go-vendor")
	require.True(t, ok)
	assert.Empty(t, vendor.YieldsTo)
}

func TestDetectMixedTree(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("package.json", `{"name": "web", "version": "1.0.0", "dependencies": {"loose-envify": "^1.1.0"}}`)
	write("yarn.lock", "loose-envify@^1.1.0:\n  version \"1.4.0\"\n")
	write("service/go.mod", "module example.com/service\n")
	write("mobile/pubspec.lock", "packages:\n  http:\n    dependency: \"direct main\"\n    source: hosted\n    version: \"1.1.0\"\n")

	set, err := RuleSet(Options{})
	require.NoError(t, err)
	o, err := detector.New(set, detector.WithMaxDepth(1), detector.WithExecutables(noExecutables{}))
	require.NoError(t, err)

	report, err := o.Run(context.Background(), root)
	require.NoError(t, err)

	status := map[string]detector.Status{}
	for _, e := range report.Evaluations {
		if e.Status != detector.StatusNotApplicable {
			status[e.Rule+" "+e.Dir] = e.Status
		}
	}
	assert.Equal(t, map[string]detector.Status{
		"yarn-lock .":          detector.StatusSucceeded,
		"npm-package-json .":   detector.StatusYielded,
		"pubspec-lock mobile":  detector.StatusSucceeded,
		"go-mod-graph service": detector.StatusNotExtractable,
	}, status)

	diags := report.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "go-mod-graph", diags[0].Context["rule"])
}
