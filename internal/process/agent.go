// Package process supervises the agent process: it launches the executable
// with piped standard streams, reads its output one record at a time and
// tears it down on request.
package process

import (
	"errors"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidState is returned when an operation is invalid for the current state.
	ErrInvalidState = errors.New("invalid agent state for operation")
	// ErrNotStarted is returned when the agent was never started.
	ErrNotStarted = errors.New("agent not started")
	// ErrAlreadyExited is returned when terminating an agent that is already gone.
	// Callers treat it as the expected outcome of a racing exit.
	ErrAlreadyExited = errors.New("agent already exited")
)

// State is the lifecycle state of an agent process.
type State int32

const (
	StatePending State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config configures an Agent.
type Config struct {
	// Path is the agent executable. It runs with no arguments and with its
	// working directory set to the directory containing it.
	Path string
	// OnLine is called once per complete, non-blank output record, in order,
	// from the read loop goroutine.
	OnLine func(line string)
	// OnExit is called once after the output stream ended and the process was
	// reaped. err is nil for a clean exit.
	OnExit func(err error)
	// Logger receives lifecycle and stderr logs.
	Logger zerolog.Logger
}

// Agent is one supervised agent process. The three pipes are owned by the
// Agent; nothing else reads or writes them.
type Agent struct {
	path   string
	onLine func(string)
	onExit func(error)
	log    zerolog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	state    atomic.Int32
	pid      atomic.Int32
	exitCode atomic.Int32
	done     chan struct{}

	closeStdin sync.Once
	platform   platformState
}

// New creates an agent in StatePending.
func New(cfg Config) *Agent {
	a := &Agent{
		path:   cfg.Path,
		onLine: cfg.OnLine,
		onExit: cfg.OnExit,
		log:    cfg.Logger,
		done:   make(chan struct{}),
	}
	if a.onLine == nil {
		a.onLine = func(string) {}
	}
	if a.onExit == nil {
		a.onExit = func(error) {}
	}
	a.exitCode.Store(-1)
	return a
}

// State returns the current lifecycle state.
func (a *Agent) State() State { return State(a.state.Load()) }

// SetState forces the state.
func (a *Agent) SetState(s State) { a.state.Store(int32(s)) }

// CompareAndSwapState atomically moves from old to new.
func (a *Agent) CompareAndSwapState(old, new State) bool {
	return a.state.CompareAndSwap(int32(old), int32(new))
}

// PID returns the OS process id, or 0 before start.
func (a *Agent) PID() int { return int(a.pid.Load()) }

// ExitCode returns the exit code once reaped, -1 otherwise or when killed by a signal.
func (a *Agent) ExitCode() int { return int(a.exitCode.Load()) }

// Done is closed once the process has been reaped.
func (a *Agent) Done() <-chan struct{} { return a.done }

// Stdin returns the agent's standard input. Writes go straight to the pipe
// without user-space buffering.
func (a *Agent) Stdin() io.Writer { return a.stdin }
