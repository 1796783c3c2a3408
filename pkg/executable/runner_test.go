//go:build unix

package executable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/errors"
)

func sh(script string) Command {
	return Command{Path: "/bin/sh", Args: []string{"-c", script}}
}

func TestRunCapturesOutput(t *testing.T) {
	var r Runner
	out, err := r.Run(context.Background(), sh("echo one; echo two; echo oops >&2"))
	require.NoError(t, err)

	assert.True(t, out.Succeeded())
	assert.Equal(t, []string{"one", "two"}, out.Stdout)
	assert.Equal(t, []string{"oops"}, out.Stderr)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	var r Runner
	out, err := r.Run(context.Background(), sh("echo partial; exit 3"))
	require.NoError(t, err)

	assert.Equal(t, 3, out.ExitCode)
	assert.False(t, out.Succeeded())
	assert.Equal(t, []string{"partial"}, out.Stdout)
}

func TestRunWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	cmd := sh("pwd")
	cmd.Dir = dir

	var r Runner
	out, err := r.Run(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, out.Stdout, 1)
	assert.Contains(t, out.Stdout[0], dir[len(dir)-8:])
}

func TestRunTimeout(t *testing.T) {
	cmd := sh("sleep 10")
	cmd.Timeout = 100 * time.Millisecond

	var r Runner
	start := time.Now()
	_, err := r.Run(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunDefaultTimeout(t *testing.T) {
	r := Runner{DefaultTimeout: 100 * time.Millisecond}
	_, err := r.Run(context.Background(), sh("sleep 10"))
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	var r Runner
	start := time.Now()
	_, err := r.Run(ctx, sh("sleep 10"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunMissingBinary(t *testing.T) {
	var r Runner
	_, err := r.Run(context.Background(), Command{Path: "/nonexistent/tool"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))
}

func TestCommandString(t *testing.T) {
	c := Command{Path: "bazel", Args: []string{"cquery", "deps(//:app)"}}
	assert.Equal(t, "bazel cquery deps(//:app)", c.String())
}
