package session

import (
	"errors"
	"fmt"
)

// ErrInvalidDuration is returned by Configure when the requested duration
// is not positive.
var ErrInvalidDuration = errors.New("session: planned duration must be positive")

// InvalidStateError reports an operation attempted against a session that is
// not in the state the operation requires (e.g. starting a running session,
// or cancelling one that already reached a terminal state). These are
// programming-contract violations in the caller and are surfaced rather than
// silently ignored. The one deliberate exception is Tick against a terminal
// session, which is a no-op: the timer and the state machine are driven by
// independently-owned schedulers and one stale tick may be in flight when a
// session ends.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session: cannot %s a %s session", e.Op, e.State)
}

func invalidState(op string, s State) error {
	return &InvalidStateError{Op: op, State: s}
}
