package history

import (
	"log"

	"github.com/tasksnap/focusd/internal/session"
)

// Recorder adapts a Store to session.Notifier, persisting sessions as they
// reach a terminal state. Non-terminal events pass through untouched.
type Recorder struct {
	store *Store
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Notify implements session.Notifier.
func (r *Recorder) Notify(ev session.Event) {
	if ev.State == nil || !ev.Terminal() {
		return
	}
	if err := r.store.Record(ev.State); err != nil {
		log.Printf("history record failed for %s: %v", ev.State.ID, err)
	}
}
