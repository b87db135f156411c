// Package bridge connects a game engine to an agent process: engine events
// become protocol lines on the agent's stdin, and lines read from the agent's
// stdout become state queries or engine actions.
package bridge

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/standardbeagle/mjbridge/internal/engine"
	"github.com/standardbeagle/mjbridge/internal/process"
	"github.com/standardbeagle/mjbridge/internal/protocol"
)

// Session bridges one engine to one agent process.
//
// A Session is single use: Start once, Stop (or Close) any number of times.
// Callers should `defer sess.Close()` right after a successful Start.
type Session struct {
	id      string
	eng     engine.Engine
	path    string
	log     zerolog.Logger
	metrics *Metrics

	// engineMu serializes every engine access made by the dispatcher. It is
	// never held while writing to the agent.
	engineMu sync.Locker

	// mu guards the fields below. Start holds it until the agent is attached;
	// everything else holds it only briefly, never across I/O.
	mu      sync.Mutex
	started bool
	running atomic.Bool // stored under mu, loaded anywhere
	agent   *process.Agent
	writer  *protocol.Writer
	sub     engine.Subscription

	// writeMu serializes records on the agent's stdin. Stop does not need it
	// to kill the agent, so a peer that stopped reading cannot block teardown.
	writeMu sync.Mutex

	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithEngineLock shares the engine's own lock with the dispatcher. Engines
// that mutate state from their own goroutines must pass the lock they hold
// while doing so.
func WithEngineLock(l sync.Locker) Option {
	return func(s *Session) { s.engineMu = l }
}

// WithMetrics sets the metrics the session reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session for eng and the agent executable at path.
func New(eng engine.Engine, path string, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		eng:      eng,
		path:     path,
		log:      zerolog.Nop(),
		engineMu: &sync.Mutex{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	return s
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// Running reports whether the agent is attached.
func (s *Session) Running() bool { return s.running.Load() }

// attached reports whether the agent is attached, waiting for a Start in
// progress to finish first.
func (s *Session) attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running.Load()
}

// Done is closed once the agent process has exited and been reaped, or
// immediately when Start failed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start subscribes to engine events and launches the agent.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	agent := process.New(process.Config{
		Path:   s.path,
		OnLine: s.handleLine,
		OnExit: s.handleExit,
		Logger: s.log,
	})

	s.sub = s.eng.Events().Subscribe(&translator{s: s})

	if err := agent.Start(); err != nil {
		s.eng.Events().Unsubscribe(s.sub)
		s.closeDone()
		return fmt.Errorf("start session %s: %w", s.id, err)
	}

	s.agent = agent
	s.writer = protocol.NewWriter(agent.Stdin())
	s.running.Store(true)
	s.metrics.AgentRunning.Inc()

	s.log.Info().Str("agent", s.path).Int("pid", agent.PID()).Msg("session started")
	return nil
}

// Stop detaches from the engine and kills the agent. It is idempotent and
// never fails: teardown problems are logged, expected ones at debug level.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}
	// From here on nothing new reaches the pipe or the engine
	s.running.Store(false)
	agent := s.agent
	sub := s.sub
	s.mu.Unlock()

	s.eng.Events().Unsubscribe(sub)

	var err error
	if agent != nil {
		err = agent.Kill()
	}
	switch {
	case err == nil:
	case errors.Is(err, process.ErrAlreadyExited), errors.Is(err, process.ErrNotStarted):
		s.log.Debug().Err(err).Msg("agent already gone at stop")
	default:
		s.log.Warn().Err(err).Msg("failed to kill agent")
	}

	// Kill closed stdin, which fails a write stuck on a full pipe; wait for
	// it so no record is in flight once Stop returns
	s.writeMu.Lock()
	s.writeMu.Unlock() //nolint:staticcheck

	s.metrics.AgentRunning.Dec()
	s.log.Info().Msg("session stopped")
}

// Close stops the session. It implements io.Closer and always returns nil.
func (s *Session) Close() error {
	s.Stop()
	return nil
}

// handleExit runs once the agent's output ended and the process was reaped.
func (s *Session) handleExit(err error) {
	if err != nil {
		s.log.Warn().Err(err).Msg("agent exited")
	} else {
		s.log.Debug().Msg("agent exited")
	}
	s.Stop()
	s.closeDone()
}

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// send writes one event record. Dropped silently once teardown began.
func (s *Session) send(verb string, args ...string) {
	text := strings.Join(append([]string{verb}, args...), " ")
	s.write(text, func(w *protocol.Writer) error { return w.WriteLine(verb, args...) })
}

// respond writes one query response record.
func (s *Session) respond(body string) {
	s.write(body, func(w *protocol.Writer) error { return w.WriteResponse(body) })
}

func (s *Session) write(text string, fn func(w *protocol.Writer) error) {
	if !s.attached() {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Stop may have run while waiting for the write lock
	if !s.running.Load() {
		return
	}

	if err := fn(s.writer); err != nil {
		if isClosedPipe(err) {
			s.log.Debug().Err(err).Msg("agent input closed")
		} else {
			s.log.Warn().Err(err).Str("line", text).Msg("failed to write to agent")
		}
		return
	}
	s.metrics.LinesOut.Inc()
	s.log.Debug().Str("line", text).Msg("agent input")
}

func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE)
}
