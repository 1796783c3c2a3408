// Package tool runs the external programs handlers shell out to.
package tool

import (
	"context"
	"strings"

	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/executable"
)

// maxStderrLines bounds the stderr excerpt attached to a failure.
const maxStderrLines = 5

// Run executes cmd through env's runner and returns its stdout. When the
// command cannot run or exits non-zero, the returned extraction describes
// the problem and must be returned by the caller instead.
func Run(ctx context.Context, env *detect.Environment, cmd executable.Command) ([]string, *detect.Extraction) {
	if cmd.Dir == "" {
		cmd.Dir = env.Dir
	}
	out, err := env.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, detect.Errored(err, detect.WithDiagnostic(detect.Warning("command: %s", cmd)))
	}
	if !out.Succeeded() {
		stderr := out.Stderr
		if len(stderr) > maxStderrLines {
			stderr = stderr[len(stderr)-maxStderrLines:]
		}
		x := detect.Failed("%s exited with status %d", cmd, out.ExitCode)
		if len(stderr) > 0 {
			x = x.WithFailureDetail(detect.Warning("%s", strings.Join(stderr, "\n")).With("stream", "stderr"))
		}
		return nil, x
	}
	return out.Stdout, nil
}
