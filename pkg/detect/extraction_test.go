package detect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/dag"
	serrors "github.com/matzehuels/stackscan/pkg/errors"
)

func TestSucceeded(t *testing.T) {
	g := dag.New(nil)
	_ = g.AddNode(dag.Dependency("npmjs", "left-pad", "1.3.0"))

	e := Succeeded(g, WithProject("app", "1.0.0"), WithDiagnostic(Warning("lock file is stale")))

	assert.Equal(t, OutcomeSuccess, e.Outcome())
	assert.True(t, e.Succeeded())
	assert.Same(t, g, e.Graph())
	project, ok := e.Project()
	require.True(t, ok)
	assert.Equal(t, NameVersion{Name: "app", Version: "1.0.0"}, project)
	assert.Len(t, e.Diagnostics(), 1)
	assert.NoError(t, e.Err())
}

func TestSucceededNilGraph(t *testing.T) {
	e := Succeeded(nil)
	require.NotNil(t, e.Graph())
	assert.Zero(t, e.Graph().DependencyCount())

	_, ok := e.Project()
	assert.False(t, ok)

	e = Succeeded(nil, WithProject("", "1.0"))
	_, ok = e.Project()
	assert.False(t, ok, "empty project name is ignored")
}

func TestFailedCarriesNoGraph(t *testing.T) {
	e := Failed("bazel exited with status %d", 2)

	assert.Equal(t, OutcomeFailure, e.Outcome())
	assert.Nil(t, e.Graph())
	assert.Equal(t, "bazel exited with status 2", e.Description())
	require.Len(t, e.Diagnostics(), 1)
	assert.Equal(t, DiagExtractionFailed, e.Diagnostics()[0].Kind)
}

func TestErroredCarriesNoGraph(t *testing.T) {
	cause := serrors.New(serrors.ErrCodeTimeout, "go exceeded 1s")
	e := Errored(cause, WithProject("x", "1"))

	assert.Equal(t, OutcomeException, e.Outcome())
	assert.Nil(t, e.Graph())
	assert.ErrorIs(t, e.Err(), cause)
	assert.Equal(t, DiagExtractionException, e.Diagnostics()[0].Kind)

	assert.Error(t, Errored(nil).Err())
}

func TestWithFailureDetail(t *testing.T) {
	failed := Failed("exit 1")
	detailed := failed.WithFailureDetail(Diagnostic{Kind: DiagNote, Message: "stderr: boom"})

	assert.Len(t, failed.Diagnostics(), 1, "original is unchanged")
	assert.Len(t, detailed.Diagnostics(), 2)

	ok := Succeeded(nil)
	assert.Same(t, ok, ok.WithFailureDetail(Diagnostic{Kind: DiagNote}))
}

func TestDiagnosticsAreCopies(t *testing.T) {
	e := Succeeded(nil, WithDiagnostic(Warning("w").With("file", "a")))
	d := e.Diagnostics()
	d[0].Context["file"] = "b"
	assert.Equal(t, "a", e.Diagnostics()[0].Context["file"])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "exception", OutcomeException.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}

func TestDiagnosticFor(t *testing.T) {
	tests := []struct {
		result Result
		want   DiagnosticKind
	}{
		{FileNotFound{Dir: "/", Pattern: "x"}, DiagFileNotFound},
		{ExecutableNotFound{Name: "bazel"}, DiagExecutableNotFound},
		{PropertyInsufficient{Property: "p"}, DiagPropertyInsufficient},
		{Exception{Err: errors.New("x")}, DiagPhaseException},
	}
	for _, tt := range tests {
		d := DiagnosticFor(tt.result)
		assert.Equal(t, tt.want, d.Kind)
		assert.Equal(t, tt.result.Description(), d.Message)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Warning("stale").With("rule", "yarn-lock").With("dir", "web")
	assert.Equal(t, "[warning] stale (dir=web rule=yarn-lock)", d.String())
	assert.Equal(t, "[note] hi", Diagnostic{Kind: DiagNote, Message: "hi"}.String())
}
