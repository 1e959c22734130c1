package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Engine drives the session state machine. All operations are synchronous,
// pure state transformations over a Session value; the one-second clock that
// feeds Tick lives elsewhere (see the clock package), so tests can synthesize
// tick sequences without waiting on real time.
//
// The engine holds no locks. A session must only be operated on from the
// single goroutine that owns it.
type Engine struct {
	onCompleted func(*Session)
	onCancelled func(*Session)
	now         func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// OnCompleted registers a callback fired exactly once when a session reaches
// Completed, synchronously from within Tick. Must be set before the engine
// is shared with a running timer.
func (e *Engine) OnCompleted(cb func(*Session)) {
	e.onCompleted = cb
}

// OnCancelled registers a callback fired exactly once when a session is
// cancelled, synchronously from within Cancel.
func (e *Engine) OnCancelled(cb func(*Session)) {
	e.onCancelled = cb
}

// SetNow overrides the engine's clock. Used by tests to pin timestamps.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Configure creates a new Idle session with the given planned duration and
// label. It does not start the clock. Sub-second durations are rejected along
// with non-positive ones; the countdown is tracked in whole seconds.
func (e *Engine) Configure(d time.Duration, label string) (*Session, error) {
	if d < time.Second {
		return nil, ErrInvalidDuration
	}
	return &Session{
		ID:               newID(),
		Label:            label,
		PlannedSeconds:   int(d / time.Second),
		RemainingSeconds: int(d / time.Second),
		State:            Idle,
	}, nil
}

// Start moves an Idle session to Running and stamps StartedAt. The caller is
// responsible for beginning tick delivery at a one-second cadence.
func (e *Engine) Start(s *Session) error {
	if s.State != Idle {
		return invalidState("start", s.State)
	}
	s.State = Running
	s.StartedAt = e.now()
	s.RemainingSeconds = s.PlannedSeconds
	return nil
}

// Tick advances a Running session by one second. Ticks against any other
// state are no-ops, not errors: a timer that was not perfectly cancelled may
// deliver one more tick after the session reached a terminal state, and that
// benign race must be tolerated. When the countdown reaches zero the session
// moves to Completed and the onCompleted hook fires exactly once.
func (e *Engine) Tick(s *Session) {
	if s.State != Running {
		return
	}
	s.RemainingSeconds--
	if s.RemainingSeconds > 0 {
		return
	}
	s.RemainingSeconds = 0
	s.State = Completed
	t := e.now()
	s.EndedAt = &t
	if e.onCompleted != nil {
		e.onCompleted(s)
	}
}

// Pause suspends a Running session. Ticks delivered while paused are no-ops,
// so the remaining time holds until Resume.
func (e *Engine) Pause(s *Session) error {
	if s.State != Running {
		return invalidState("pause", s.State)
	}
	s.State = Paused
	return nil
}

// Resume returns a Paused session to Running.
func (e *Engine) Resume(s *Session) error {
	if s.State != Paused {
		return invalidState("resume", s.State)
	}
	s.State = Running
	return nil
}

// Cancel terminates a session before its countdown expires. Remaining time
// is left untouched. Cancelling a session that is already terminal is an
// error, not a silent no-op, so callers can detect double-cancel bugs. The
// onCancelled hook fires exactly once.
func (e *Engine) Cancel(s *Session) error {
	if s.IsTerminal() {
		return invalidState("cancel", s.State)
	}
	s.State = Cancelled
	t := e.now()
	s.EndedAt = &t
	if e.onCancelled != nil {
		e.onCancelled(s)
	}
	return nil
}

// newID returns an opaque session identifier.
func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("s-%d", time.Now().UnixNano())
	}
	return "s-" + hex.EncodeToString(b[:])
}
