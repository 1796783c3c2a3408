package bazel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/executable"
)

type fakeExecutables map[string]string

func (f fakeExecutables) Resolve(name string) (string, bool) {
	p, ok := f[name]
	return p, ok
}

type scriptedRunner struct {
	outputs map[string]executable.Output
	calls   []string
}

func (s *scriptedRunner) Run(_ context.Context, cmd executable.Command) (executable.Output, error) {
	key := strings.Join(cmd.Args, " ")
	s.calls = append(s.calls, key)
	return s.outputs[key], nil
}

var cqueryOutput = []string{
	`# /home/user/.cache/bazel/external/maven/BUILD:12:11`,
	`jvm_import(`,
	`  name = "com_google_code_findbugs_jsr305",`,
	`  tags = ["maven_coordinates=com.google.code.findbugs:jsr305:3.0.2"],`,
	`  jars = ["@maven//:v1/https/repo1.maven.org/jsr305-3.0.2.jar"],`,
	`)`,
	`jvm_import(`,
	`  name = "junit_junit",`,
	`  tags = ["maven_coordinates=junit:junit:jar:4.13.2"],`,
	`)`,
}

var jarQueryOutput = []string{
	`@org_apache_commons_commons_io//jar:jar`,
	`@com_google_guava_guava//jar:jar`,
	`@com_google_guava_guava//jar:jar`,
	`//src/main:app`,
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WORKSPACE"), nil, 0o644))
	return dir
}

func newEnv(dir string, runner detect.ProcessRunner) *detect.Environment {
	return &detect.Environment{
		Dir: dir, Root: dir,
		Files:       detect.OSFileFinder{},
		Executables: fakeExecutables{"bazel": "/usr/local/bin/bazel"},
		Runner:      runner,
	}
}

func TestApplicableRequiresTarget(t *testing.T) {
	env := newEnv(workspace(t), nil)

	res := New(Options{}).Applicable(env)
	require.False(t, res.Passed())
	assert.IsType(t, detect.PropertyInsufficient{}, res)
	assert.True(t, detect.IsActionable(res))

	assert.True(t, New(Options{Target: "//src:app"}).Applicable(env).Passed())
}

func TestNotApplicableWithoutWorkspace(t *testing.T) {
	dir := t.TempDir()
	res := New(Options{Target: "//src:app"}).Applicable(newEnv(dir, nil))
	assert.IsType(t, detect.FileNotFound{}, res)
}

func TestExtract(t *testing.T) {
	outputs := map[string]executable.Output{}
	outputs["cquery --noimplicit_deps kind(j.*import, deps(//src:app)) --output build"] = executable.Output{Stdout: cqueryOutput}
	outputs["query filter('@.*:jar', deps(//src:app))"] = executable.Output{Stdout: jarQueryOutput}
	outputs["query kind(maven_jar, //external:com_google_guava_guava) --output build"] = executable.Output{Stdout: []string{
		`maven_jar(`, `  name = "com_google_guava_guava",`, `  artifact = "com.google.guava:guava:32.1.2-jre",`, `)`,
	}}
	outputs["query kind(maven_jar, //external:org_apache_commons_commons_io) --output build"] = executable.Output{Stdout: []string{
		`maven_jar(`, `  artifact = "commons-io:commons-io:2.11.0",`, `)`,
	}}
	runner := &scriptedRunner{outputs: outputs}
	env := newEnv(workspace(t), runner)
	d := New(Options{Target: "//src:app"})
	require.True(t, d.Applicable(env).Passed())
	require.True(t, d.Extractable(env).Passed())

	x := d.Extract(context.Background(), env)
	require.True(t, x.Succeeded(), x.Description())
	assert.Equal(t, []string{
		dag.ExternalID(Forge, "com.google.code.findbugs:jsr305", "3.0.2"),
		dag.ExternalID(Forge, "junit:junit", "4.13.2"),
		dag.ExternalID(Forge, "com.google.guava:guava", "32.1.2-jre"),
		dag.ExternalID(Forge, "commons-io:commons-io", "2.11.0"),
	}, x.Graph().Roots())
	assert.Len(t, runner.calls, 4, "duplicate repositories are queried once")
}

func TestExtractSelectedRules(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]executable.Output{
		"cquery --noimplicit_deps kind(j.*import, deps(//:app)) --output build": {Stdout: cqueryOutput},
	}}
	env := newEnv(workspace(t), runner)
	d := New(Options{Target: "//:app", Rules: []string{RuleMavenInstall}})
	require.True(t, d.Applicable(env).Passed())
	require.True(t, d.Extractable(env).Passed())

	x := d.Extract(context.Background(), env)
	require.True(t, x.Succeeded())
	assert.Len(t, x.Graph().Roots(), 2)
	assert.Len(t, runner.calls, 1)
}

func TestExtractQueryFailure(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]executable.Output{
		"cquery --noimplicit_deps kind(j.*import, deps(//:app)) --output build": {
			ExitCode: 7, Stderr: []string{"ERROR: no such target '//:app'"},
		},
	}}
	env := newEnv(workspace(t), runner)
	d := New(Options{Target: "//:app"})
	require.True(t, d.Applicable(env).Passed())
	require.True(t, d.Extractable(env).Passed())

	x := d.Extract(context.Background(), env)
	assert.Equal(t, detect.OutcomeFailure, x.Outcome())
}

func TestExtractableWithoutBazel(t *testing.T) {
	env := newEnv(workspace(t), nil)
	env.Executables = fakeExecutables{}
	res := New(Options{Target: "//:app"}).Extractable(env)
	assert.Equal(t, detect.ExecutableNotFound{Name: "bazel"}, res)
}

func TestExtractableConfiguredPathMissing(t *testing.T) {
	dir := workspace(t)
	r, err := executable.NewResolver(
		executable.WithOverride("bazel", filepath.Join(dir, "tools", "bazel")),
		executable.WithLookPath(func(string) (string, error) { return "/usr/local/bin/bazel", nil }),
	)
	require.NoError(t, err)
	defer r.Close()

	env := newEnv(dir, nil)
	env.Executables = r
	res := New(Options{Target: "//:app"}).Extractable(env)
	assert.Equal(t, detect.ExecutableNotFound{Name: "bazel"}, res)
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		version string
		ok      bool
	}{
		{"g:a:1.0", "g:a", "1.0", true},
		{"g:a:jar:1.0", "g:a", "1.0", true},
		{"g:a:jar:sources:1.0", "g:a", "1.0", true},
		{"g:a", "", "", false},
		{"g::1.0", "", "", false},
		{"a:b:c:d:e:f", "", "", false},
	}
	for _, tt := range tests {
		n, ok := ParseCoordinates(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.name, n.Name, tt.in)
		assert.Equal(t, tt.version, n.Version, tt.in)
	}
}
