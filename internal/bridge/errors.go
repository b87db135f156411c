package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation matches every *ProtocolViolation via errors.Is.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrAlreadyStarted is returned by Start on a session that was started before.
	ErrAlreadyStarted = errors.New("session already started")

	errStopped = errors.New("session stopped")
)

// ProtocolViolation reports an agent line that names something the engine
// does not have: a tile absent from the hand, a player index out of range,
// or a missing argument. The offending line is dropped; the session goes on.
type ProtocolViolation struct {
	Verb   string
	Reason string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s: %s", e.Verb, e.Reason)
}

// Is lets errors.Is(err, ErrProtocolViolation) match.
func (e *ProtocolViolation) Is(target error) bool {
	return target == ErrProtocolViolation
}

func violationf(verb, format string, args ...any) error {
	return &ProtocolViolation{Verb: verb, Reason: fmt.Sprintf(format, args...)}
}
