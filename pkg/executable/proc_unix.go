//go:build unix

package executable

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group.
// Cancellation kills the whole group, forked children included.
func configureProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
