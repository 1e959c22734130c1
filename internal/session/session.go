package session

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a focus session. Transitions are
// one-directional: Idle -> Running -> (Paused <-> Running) -> Completed
// or Cancelled. Completed and Cancelled are terminal.
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
	Cancelled
)

var stateNames = map[State]string{
	Idle:      "idle",
	Running:   "running",
	Paused:    "paused",
	Completed: "completed",
	Cancelled: "cancelled",
}

var stateFromName = map[string]State{
	"idle":      Idle,
	"running":   Running,
	"paused":    Paused,
	"completed": Completed,
	"cancelled": Cancelled,
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}

// Session is a single timed focus interval. A session is owned by exactly
// one goroutine (the runner that created it) for its entire lifetime; the
// struct carries no internal synchronization.
type Session struct {
	ID               string     `json:"id"`
	Label            string     `json:"label,omitempty"`
	Room             string     `json:"room,omitempty"` // body-doubling room, if any
	PlannedSeconds   int        `json:"plannedSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	State            State      `json:"state"`
	Slot             int        `json:"slot"`
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// Clone returns a deep copy of the Session, duplicating pointer fields so
// the copy can be mutated independently of the original.
func (s *Session) Clone() *Session {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// PlannedDuration returns the configured session length.
func (s *Session) PlannedDuration() time.Duration {
	return time.Duration(s.PlannedSeconds) * time.Second
}

// Remaining returns the time left on the countdown.
func (s *Session) Remaining() time.Duration {
	return time.Duration(s.RemainingSeconds) * time.Second
}

// Elapsed returns the time spent inside the session so far.
func (s *Session) Elapsed() time.Duration {
	return s.PlannedDuration() - s.Remaining()
}

// RemainingFraction returns remaining/planned in [0, 1]. It never mutates
// state and is safe to call in any state; callers use it to drive progress
// visualization.
func (s *Session) RemainingFraction() float64 {
	if s.PlannedSeconds <= 0 {
		return 0
	}
	f := float64(s.RemainingSeconds) / float64(s.PlannedSeconds)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func (s *Session) IsTerminal() bool {
	return s.State == Completed || s.State == Cancelled
}
