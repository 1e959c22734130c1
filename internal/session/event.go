package session

// EventType classifies session lifecycle events.
type EventType int

const (
	EventStarted   EventType = iota // session moved from Idle to Running
	EventTick                       // one second elapsed on a running session
	EventPaused                     // session paused
	EventResumed                    // session resumed
	EventCompleted                  // countdown reached zero
	EventCancelled                  // session cancelled before expiry
	EventRemoved                    // terminal session pruned from the registry
)

// Event carries a session state snapshot to observers. State is a clone and
// safe to retain.
type Event struct {
	Type        EventType
	State       *Session
	ActiveCount int // non-terminal sessions at event time
}

// Terminal reports whether the event marks the end of a session's lifecycle.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventCancelled
}
