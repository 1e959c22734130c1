package session

import (
	"sync"
)

// Store is a concurrency-safe registry of session snapshots, used to serve
// reads (HTTP, websocket snapshots) without touching the live sessions owned
// by the runner. Each session is assigned a stable slot number on first
// insert; the UI uses slots for layout ordering.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextSlot int
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

func (s *Store) GetAll() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Session, 0, len(s.sessions))
	for _, st := range s.sessions {
		result = append(result, st.Clone())
	}
	return result
}

// Update inserts or replaces the snapshot for state.ID. The slot assigned on
// first insert is preserved across updates.
func (s *Store) Update(state *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[state.ID]; ok {
		state.Slot = existing.Slot
	} else {
		state.Slot = s.nextSlot
		s.nextSlot++
	}
	s.sessions[state.ID] = state.Clone()
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// ActiveCount returns the number of sessions that have not reached a
// terminal state.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.sessions {
		if !st.IsTerminal() {
			count++
		}
	}
	return count
}

// RunningCount returns the number of sessions currently in Running or
// Paused state. Used to enforce the concurrent session cap.
func (s *Store) RunningCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.sessions {
		if st.State == Running || st.State == Paused {
			count++
		}
	}
	return count
}
