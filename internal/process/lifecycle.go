package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/standardbeagle/mjbridge/internal/protocol"
)

// Start launches the agent process.
// The agent must be in StatePending.
func (a *Agent) Start() error {
	// Atomic state transition: Pending -> Starting
	if !a.CompareAndSwapState(StatePending, StateStarting) {
		return fmt.Errorf("%w: cannot start agent %s (state: %s)",
			ErrInvalidState, a.path, a.State())
	}

	exe, err := filepath.Abs(a.path)
	if err != nil {
		a.SetState(StateFailed)
		return fmt.Errorf("failed to resolve agent path %s: %w", a.path, err)
	}

	a.cmd = exec.Command(exe)
	a.cmd.Dir = filepath.Dir(exe)
	a.cmd.Env = os.Environ()

	// Own process group (Unix) or hidden console + job object (Windows)
	setProcAttr(a.cmd)

	if err := a.openPipes(); err != nil {
		a.SetState(StateFailed)
		return err
	}

	if err := a.cmd.Start(); err != nil {
		a.SetState(StateFailed)
		return fmt.Errorf("failed to start agent %s: %w", exe, err)
	}

	// Must happen right after Start to catch children spawned by the agent
	if err := a.attachPlatform(); err != nil {
		a.log.Debug().Err(err).Msg("process tree tracking unavailable")
	}

	a.pid.Store(int32(a.cmd.Process.Pid))
	a.log = a.log.With().Int("pid", a.PID()).Logger()
	a.SetState(StateRunning)
	a.log.Debug().Str("path", exe).Str("dir", a.cmd.Dir).Msg("agent started")

	var stderrDone sync.WaitGroup
	stderrDone.Add(1)
	go func() {
		defer stderrDone.Done()
		a.drainStderr()
	}()

	go a.supervise(&stderrDone)

	return nil
}

func (a *Agent) openPipes() error {
	var err error
	if a.stdin, err = a.cmd.StdinPipe(); err != nil {
		return fmt.Errorf("failed to open agent stdin: %w", err)
	}
	if a.stdout, err = a.cmd.StdoutPipe(); err != nil {
		return fmt.Errorf("failed to open agent stdout: %w", err)
	}
	if a.stderr, err = a.cmd.StderrPipe(); err != nil {
		return fmt.Errorf("failed to open agent stderr: %w", err)
	}
	return nil
}

// supervise runs the read loop until end of stream, then reaps the process.
func (a *Agent) supervise(stderrDone *sync.WaitGroup) {
	readErr := a.readLoop()

	// Wait closes the pipes, so every reader must be finished first
	stderrDone.Wait()
	waitErr := a.cmd.Wait()
	a.releasePlatform()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		a.exitCode.Store(0)
	case errors.As(waitErr, &exitErr):
		a.exitCode.Store(int32(exitErr.ExitCode()))
	default:
		a.exitCode.Store(-1)
	}

	// A kill we asked for is a normal stop
	if a.CompareAndSwapState(StateStopping, StateStopped) {
		waitErr = nil
	} else if waitErr != nil || readErr != nil {
		a.SetState(StateFailed)
	} else {
		a.SetState(StateStopped)
	}

	a.log.Debug().
		Int("exit_code", a.ExitCode()).
		Str("state", a.State().String()).
		Msg("agent exited")

	close(a.done)

	if readErr != nil {
		a.onExit(readErr)
		return
	}
	a.onExit(waitErr)
}

// readLoop hands each complete non-blank record to OnLine.
// End of stream is the normal way out and returns nil.
func (a *Agent) readLoop() error {
	r := protocol.NewReader(a.stdout)
	for {
		line, err := r.ReadRecord()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
				return nil
			case errors.Is(err, protocol.ErrPartialRecord):
				a.log.Debug().Msg("dropping unterminated record at end of stream")
				return nil
			}
			return fmt.Errorf("read agent output: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		a.log.Debug().Str("line", line).Msg("agent output")
		a.onLine(line)
	}
}

// drainStderr keeps the stderr pipe from filling up. Stderr is not part of
// the protocol; it only feeds the debug log.
func (a *Agent) drainStderr() {
	r := protocol.NewReader(a.stderr)
	for {
		line, err := r.ReadRecord()
		if err != nil {
			return
		}
		if line != "" {
			a.log.Debug().Str("line", line).Msg("agent stderr")
		}
	}
}

// Kill forcibly terminates the agent and every process in its group.
// It is safe to call repeatedly. ErrAlreadyExited and ErrNotStarted report
// expected conditions; any other error is unexpected but still leaves the
// agent marked as stopping.
func (a *Agent) Kill() error {
	if a.State() == StatePending {
		return ErrNotStarted
	}

	// Always close stdin: a writer blocked on a full pipe fails at once even
	// when a grandchild still holds the read end open
	a.closeStdin.Do(func() {
		if a.stdin != nil {
			_ = a.stdin.Close()
		}
	})

	switch a.State() {
	case StateStopped, StateFailed:
		return ErrAlreadyExited
	}

	a.CompareAndSwapState(StateRunning, StateStopping)

	if a.cmd == nil || a.cmd.Process == nil {
		return ErrNotStarted
	}

	err := a.killTree(a.cmd.Process.Pid)
	if err == nil {
		return nil
	}
	if isNoSuchProcess(err) {
		return ErrAlreadyExited
	}
	return fmt.Errorf("failed to kill agent %d: %w", a.cmd.Process.Pid, err)
}
