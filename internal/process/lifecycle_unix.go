//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// platformState is empty on Unix: process groups are handled by the kernel.
type platformState struct{}

// setProcAttr puts the agent in its own process group so a kill reaches any
// children it spawned.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// attachPlatform is a no-op on Unix.
func (a *Agent) attachPlatform() error { return nil }

// releasePlatform is a no-op on Unix.
func (a *Agent) releasePlatform() {}

// killTree sends SIGKILL to the agent's process group.
func (a *Agent) killTree(pid int) error {
	pgid, err := unix.Getpgid(pid)
	if err == nil && pgid > 0 {
		// Negative PID signals the entire group
		return unix.Kill(-pgid, unix.SIGKILL)
	}
	// Fall back to signaling just the process
	return unix.Kill(pid, unix.SIGKILL)
}

// isNoSuchProcess returns true if the error indicates the process is gone.
func isNoSuchProcess(err error) bool {
	return errors.Is(err, unix.ESRCH) || errors.Is(err, os.ErrProcessDone)
}
