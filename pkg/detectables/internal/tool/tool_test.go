package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/executable"
)

type fakeRunner struct {
	out executable.Output
	err error
	got executable.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd executable.Command) (executable.Output, error) {
	f.got = cmd
	return f.out, f.err
}

func TestRun(t *testing.T) {
	r := &fakeRunner{out: executable.Output{Stdout: []string{"a", "b"}}}
	env := &detect.Environment{Dir: "/src", Runner: r}

	lines, x := Run(context.Background(), env, executable.Command{Path: "go", Args: []string{"list"}})
	require.Nil(t, x)
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, "/src", r.got.Dir)
}

func TestRunNonZeroExit(t *testing.T) {
	var stderr []string
	for i := range 8 {
		stderr = append(stderr, fmt.Sprintf("line %d", i))
	}
	env := &detect.Environment{Runner: &fakeRunner{out: executable.Output{ExitCode: 2, Stderr: stderr}}}

	_, x := Run(context.Background(), env, executable.Command{Path: "bazel"})
	require.NotNil(t, x)
	assert.Equal(t, detect.OutcomeFailure, x.Outcome())
	require.Len(t, x.Diagnostics(), 2)
	assert.Contains(t, x.Diagnostics()[1].Message, "line 7")
	assert.NotContains(t, x.Diagnostics()[1].Message, "line 2")
}

func TestRunError(t *testing.T) {
	timeout := errors.New(errors.ErrCodeTimeout, "bazel exceeded 5m0s")
	env := &detect.Environment{Runner: &fakeRunner{err: timeout}}

	_, x := Run(context.Background(), env, executable.Command{Path: "bazel"})
	require.NotNil(t, x)
	assert.Equal(t, detect.OutcomeException, x.Outcome())
	assert.True(t, errors.Is(x.Err(), errors.ErrCodeTimeout))
}
