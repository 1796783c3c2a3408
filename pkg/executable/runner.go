package executable

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackscan/pkg/errors"
)

// DefaultTimeout applies to commands that do not set their own.
const DefaultTimeout = 5 * time.Minute

// waitDelay bounds how long Run waits for output pipes after the process
// was killed.
const waitDelay = 2 * time.Second

// Command describes one process invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Output is the captured result of a finished process.
type Output struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
}

// Succeeded reports whether the process exited with status 0.
func (o Output) Succeeded() bool { return o.ExitCode == 0 }

// Runner executes commands. The zero value is ready to use.
type Runner struct {
	// DefaultTimeout applies when Command.Timeout is zero. Zero means
	// the package DefaultTimeout.
	DefaultTimeout time.Duration
	// Logger receives a debug line per command. Nil disables logging.
	Logger *log.Logger
}

// Run executes cmd and captures its output. A non-zero exit status is not an
// error; inspect Output.ExitCode. Run returns an ErrCodeTimeout error when
// the command outlives its timeout and the context error when ctx is
// cancelled. In both cases the process group has been killed.
func (r *Runner) Run(ctx context.Context, cmd Command) (Output, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	configureProcessGroup(c)
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	if r.Logger != nil {
		r.Logger.Debug("command finished", "cmd", cmd.String(), "dir", cmd.Dir, "elapsed", time.Since(start).Round(time.Millisecond))
	}

	out := Output{
		Stdout: splitLines(stdout.Bytes()),
		Stderr: splitLines(stderr.Bytes()),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return out, errors.Wrap(errors.ErrCodeTimeout, runCtx.Err(), "%s exceeded %s", cmd.Path, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, errors.Wrap(errors.ErrCodeInternal, err, "run %s", cmd.Path)
	}
	return out, nil
}

func splitLines(b []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
