// Package room implements body-doubling rooms: shared spaces where people
// run focus sessions alongside each other. Rooms here are a local capacity
// gate and participant list; presence of other members is simulated.
package room

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrUnknownRoom = errors.New("room: unknown room")
	ErrRoomFull    = errors.New("room: room is full")
	ErrNotInRoom   = errors.New("room: participant not in room")
)

// Participant is one member of a room. Simulated members carry Ambient=true
// so the UI can render them differently from the local user.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Focusing bool      `json:"focusing"`
	Ambient  bool      `json:"ambient,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Info is the static configuration of a room.
type Info struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// State is a point-in-time snapshot of a room and its members.
type State struct {
	Info
	Participants []Participant `json:"participants"`
}

// Notifier receives a snapshot whenever a room's membership changes.
type Notifier interface {
	NotifyRoom(state State)
}

type roomData struct {
	info    Info
	members map[string]*Participant
}

// Registry holds all configured rooms and their current membership.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*roomData
	order    []string // stable listing order, as configured
	notifier Notifier
}

// NewRegistry creates a registry with the given rooms. Duplicate IDs are
// an error since Join and Leave address rooms by ID.
func NewRegistry(rooms []Info) (*Registry, error) {
	r := &Registry{rooms: make(map[string]*roomData, len(rooms))}
	for _, info := range rooms {
		if info.ID == "" {
			return nil, errors.New("room: room with empty ID")
		}
		if _, dup := r.rooms[info.ID]; dup {
			return nil, fmt.Errorf("room: duplicate room ID %q", info.ID)
		}
		if info.Capacity <= 0 {
			info.Capacity = 8
		}
		r.rooms[info.ID] = &roomData{
			info:    info,
			members: make(map[string]*Participant),
		}
		r.order = append(r.order, info.ID)
	}
	return r, nil
}

// SetNotifier registers the snapshot receiver. Call before any Join.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// Exists reports whether a room with the given ID is configured.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Join adds a participant to a room. Joining a room the participant is
// already in refreshes their entry rather than erroring.
func (r *Registry) Join(roomID string, p Participant) (State, error) {
	r.mu.Lock()
	rd, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return State{}, ErrUnknownRoom
	}
	if _, member := rd.members[p.ID]; !member && len(rd.members) >= rd.info.Capacity {
		r.mu.Unlock()
		return State{}, ErrRoomFull
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	cp := p
	rd.members[p.ID] = &cp
	state := snapshotLocked(rd)
	r.mu.Unlock()

	r.notify(state)
	return state, nil
}

// Leave removes a participant from a room.
func (r *Registry) Leave(roomID, participantID string) (State, error) {
	r.mu.Lock()
	rd, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return State{}, ErrUnknownRoom
	}
	if _, member := rd.members[participantID]; !member {
		r.mu.Unlock()
		return State{}, ErrNotInRoom
	}
	delete(rd.members, participantID)
	state := snapshotLocked(rd)
	r.mu.Unlock()

	r.notify(state)
	return state, nil
}

// SetFocusing flags a participant as currently in a running session.
// Unknown rooms or members are ignored; focus state is best-effort.
func (r *Registry) SetFocusing(roomID, participantID string, focusing bool) {
	r.mu.Lock()
	rd, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p, member := rd.members[participantID]
	if !member || p.Focusing == focusing {
		r.mu.Unlock()
		return
	}
	p.Focusing = focusing
	state := snapshotLocked(rd)
	r.mu.Unlock()

	r.notify(state)
}

// Get returns a snapshot of one room.
func (r *Registry) Get(roomID string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.rooms[roomID]
	if !ok {
		return State{}, ErrUnknownRoom
	}
	return snapshotLocked(rd), nil
}

// List returns snapshots of all rooms in configuration order.
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshotLocked(r.rooms[id]))
	}
	return out
}

func (r *Registry) notify(state State) {
	if r.notifier != nil {
		r.notifier.NotifyRoom(state)
	}
}

func snapshotLocked(rd *roomData) State {
	st := State{
		Info:         rd.info,
		Participants: make([]Participant, 0, len(rd.members)),
	}
	for _, p := range rd.members {
		st.Participants = append(st.Participants, *p)
	}
	return st
}
