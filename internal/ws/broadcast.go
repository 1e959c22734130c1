package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
)

// ErrTooManyConnections is returned by AddClient when the configured
// connection cap is reached.
var ErrTooManyConnections = errors.New("ws: connection limit reached")

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans session and gamification events out to connected
// WebSocket clients. Tick updates are coalesced under a throttle window so a
// burst of concurrent sessions does not produce one frame per tick; a
// periodic full snapshot heals clients that missed deltas.
//
// Broadcaster implements session.Notifier and room.Notifier.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int

	store   *session.Store
	privacy *session.PrivacyFilter

	throttle       time.Duration
	snapshotTicker *time.Ticker
	snapshotDone   chan struct{}

	flushMu        sync.Mutex
	pendingUpdates []*session.Session
	pendingRemoved []string
	flushTimer     *time.Timer
}

// NewBroadcaster starts the snapshot loop. maxConns of 0 means unlimited.
func NewBroadcaster(store *session.Store, privacy *session.PrivacyFilter, throttle, snapshotInterval time.Duration, maxConns int) *Broadcaster {
	if throttle <= 0 {
		throttle = 100 * time.Millisecond
	}
	if snapshotInterval <= 0 {
		snapshotInterval = 5 * time.Second
	}
	b := &Broadcaster{
		clients:      make(map[*client]bool),
		maxConns:     maxConns,
		store:        store,
		privacy:      privacy,
		throttle:     throttle,
		snapshotDone: make(chan struct{}),
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

// Stop ends the snapshot loop and disconnects all clients.
func (b *Broadcaster) Stop() {
	b.snapshotTicker.Stop()
	close(b.snapshotDone)

	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	snapshot := WSMessage{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			Sessions: b.filtered(b.store.GetAll()),
		},
	}
	data, _ := json.Marshal(snapshot)

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot; the periodic one catches up.
	}

	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// Notify implements session.Notifier. Ticks and state changes become throttled
// deltas; terminal events additionally get their own announcement frame.
func (b *Broadcaster) Notify(ev session.Event) {
	if ev.State == nil {
		return
	}

	switch ev.Type {
	case session.EventCompleted:
		b.queueUpdate(ev.State)
		s := b.applyPrivacy(ev.State)
		b.broadcast(WSMessage{
			Type: MsgCompletion,
			Payload: CompletionPayload{
				SessionID: s.ID,
				Label:     s.Label,
				PlannedS:  s.PlannedSeconds,
			},
		})
	case session.EventCancelled:
		b.queueUpdate(ev.State)
		s := b.applyPrivacy(ev.State)
		b.broadcast(WSMessage{
			Type: MsgCancellation,
			Payload: CancellationPayload{
				SessionID:  s.ID,
				Label:      s.Label,
				RemainingS: s.RemainingSeconds,
			},
		})
	case session.EventRemoved:
		b.queueRemoval(ev.State.ID)
	default:
		b.queueUpdate(ev.State)
	}
}

// NotifyRoom implements room.Notifier.
func (b *Broadcaster) NotifyRoom(state room.State) {
	if b.privacy != nil && !b.privacy.IsAllowed(state.ID) {
		return
	}
	b.broadcast(WSMessage{Type: MsgRoomUpdate, Payload: RoomUpdatePayload{Room: state}})
}

// NotifyAchievement pushes an unlock announcement to all clients.
func (b *Broadcaster) NotifyAchievement(a gamification.Achievement) {
	b.broadcast(WSMessage{
		Type: MsgAchievementUnlocked,
		Payload: AchievementUnlockedPayload{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Tier:        string(a.Tier),
			Category:    string(a.Category),
		},
	})
}

// NotifyStreak pushes a streak advance to all clients.
func (b *Broadcaster) NotifyStreak(s gamification.StreakStatus) {
	b.broadcast(WSMessage{
		Type:    MsgStreak,
		Payload: StreakPayload{Current: s.Current, Longest: s.Longest},
	})
}

// NotifyGarden pushes garden growth to all clients.
func (b *Broadcaster) NotifyGarden(p gamification.GardenProgress, reason string) {
	b.broadcast(WSMessage{
		Type:    MsgGarden,
		Payload: GardenPayload{Progress: p, Reason: reason},
	})
}

func (b *Broadcaster) queueUpdate(s *session.Session) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingUpdates = append(b.pendingUpdates, s.Clone())

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

// queueRemoval schedules a removal notice for a session pruned from the
// store, coalesced into the next delta flush alongside pending updates.
func (b *Broadcaster) queueRemoval(id string) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingRemoved = append(b.pendingRemoved, id)

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	updates := b.pendingUpdates
	removed := b.pendingRemoved
	b.pendingUpdates = nil
	b.pendingRemoved = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(updates) == 0 && len(removed) == 0 {
		return
	}

	b.broadcast(WSMessage{
		Type: MsgDelta,
		Payload: DeltaPayload{
			Updates: b.filtered(dedupeUpdates(updates)),
			Removed: removed,
		},
	})
}

// dedupeUpdates keeps only the newest state per session ID, preserving first
// appearance order. A session ticks several times within one throttle window;
// only the last state is worth sending.
func dedupeUpdates(updates []*session.Session) []*session.Session {
	latest := make(map[string]int, len(updates))
	deduped := make([]*session.Session, 0, len(updates))
	for _, s := range updates {
		if i, seen := latest[s.ID]; seen {
			deduped[i] = s
			continue
		}
		latest[s.ID] = len(deduped)
		deduped = append(deduped, s)
	}
	return deduped
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.snapshotDone:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(WSMessage{
				Type: MsgSnapshot,
				Payload: SnapshotPayload{
					Sessions: b.filtered(b.store.GetAll()),
				},
			})
		}
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

// FilterSessions applies the privacy filter to a session list. Exposed for
// the REST handlers so the HTTP and WS surfaces redact identically.
func (b *Broadcaster) FilterSessions(sessions []*session.Session) []*session.Session {
	return b.filtered(sessions)
}

func (b *Broadcaster) filtered(sessions []*session.Session) []*session.Session {
	if b.privacy == nil || b.privacy.IsNoop() {
		return sessions
	}
	return b.privacy.FilterSlice(sessions)
}

func (b *Broadcaster) applyPrivacy(s *session.Session) *session.Session {
	if b.privacy == nil || b.privacy.IsNoop() {
		return s
	}
	return b.privacy.Apply(s)
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
