package govendor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
)

const vendorJSONFixture = `{
  "comment": "",
  "ignore": "test",
  "package": [
    {"checksumSHA1": "x", "path": "github.com/pkg/errors", "revision": "645ef00459ed84a119197bfb8d8205042c6df63d", "version": "v0.8.0"},
    {"checksumSHA1": "y", "path": "golang.org/x/net/context", "revision": "a6577fac2d73be281a500b310739095313165611"}
  ],
  "rootPath": "github.com/acme/widget"
}`

func env(t *testing.T, content string) *detect.Environment {
	t.Helper()
	dir := t.TempDir()
	if content != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "vendor.json"), []byte(content), 0o644))
	}
	return &detect.Environment{Dir: dir, Root: dir, Files: detect.OSFileFinder{}}
}

func TestExtract(t *testing.T) {
	e := env(t, vendorJSONFixture)
	d := New()
	require.True(t, d.Applicable(e).Passed())

	x := d.Extract(context.Background(), e)
	require.True(t, x.Succeeded())
	assert.ElementsMatch(t, []string{
		dag.ExternalID(Forge, "github.com/pkg/errors", "v0.8.0"),
		dag.ExternalID(Forge, "golang.org/x/net/context", "a6577fac2d73be281a500b310739095313165611"),
	}, x.Graph().Roots())

	project, ok := x.Project()
	require.True(t, ok)
	assert.Equal(t, "widget", project.Name)
}

func TestNotApplicable(t *testing.T) {
	e := env(t, "")
	res := New().Applicable(e)
	require.False(t, res.Passed())
	assert.Equal(t, "vendor", res.(detect.FileNotFound).Pattern)

	require.NoError(t, os.Mkdir(filepath.Join(e.Dir, "vendor"), 0o755))
	res = New().Applicable(e)
	require.False(t, res.Passed())
	assert.Equal(t, "vendor.json", res.(detect.FileNotFound).Pattern)
}

func TestExtractMalformed(t *testing.T) {
	e := env(t, "{")
	d := New()
	require.True(t, d.Applicable(e).Passed())
	assert.Equal(t, detect.OutcomeException, d.Extract(context.Background(), e).Outcome())
}
