package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tasksnap/focusd/internal/clock"
)

var (
	// ErrDurationNotAllowed is returned when the requested duration is not
	// in the configured preset list and custom durations are disabled.
	ErrDurationNotAllowed = errors.New("session: duration not in allowed presets")

	// ErrTooManyActive is returned when starting a session would exceed the
	// configured concurrent session cap.
	ErrTooManyActive = errors.New("session: concurrent session limit reached")

	// ErrUnknownSession is returned for operations against an ID that has no
	// live session.
	ErrUnknownSession = errors.New("session: no such session")
)

// Notifier receives session lifecycle events for broadcast to clients.
type Notifier interface {
	Notify(Event)
}

// RunnerConfig carries the runner's tunables, resolved from the config file.
type RunnerConfig struct {
	Scheduler      clock.Scheduler
	TickInterval   time.Duration
	AllowedMinutes []int
	AllowCustom    bool
	MaxConcurrent  int
	RetainTerminal time.Duration // how long finished sessions stay in the store
}

// Runner owns the live sessions and wires the clock into the engine. It is
// the single goroutine-safe entry point for starting, pausing, resuming and
// cancelling sessions; the engine and the Session values it operates on are
// only ever touched under the runner's mutex, which satisfies the engine's
// single-owner contract.
type Runner struct {
	mu       sync.Mutex
	engine   *Engine
	store    *Store
	sched    clock.Scheduler
	interval time.Duration
	allowed  map[int]bool
	custom   bool
	maxLive  int
	retain   time.Duration

	live    map[string]*Session
	stops   map[int]func() // keyed by slot: one outstanding timer per slot
	pending []Event        // events queued under mu, emitted after unlock

	notifier Notifier

	statsEvents      chan<- Event
	dropMu           sync.Mutex
	statsDropped     int64
	statsLastDropLog time.Time
}

func NewRunner(store *Store, cfg RunnerConfig) *Runner {
	if cfg.Scheduler == nil {
		cfg.Scheduler = clock.Ticker{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RetainTerminal <= 0 {
		cfg.RetainTerminal = 2 * time.Minute
	}
	allowed := make(map[int]bool, len(cfg.AllowedMinutes))
	for _, m := range cfg.AllowedMinutes {
		allowed[m] = true
	}

	r := &Runner{
		engine:   NewEngine(),
		store:    store,
		sched:    cfg.Scheduler,
		interval: cfg.TickInterval,
		allowed:  allowed,
		custom:   cfg.AllowCustom,
		maxLive:  cfg.MaxConcurrent,
		retain:   cfg.RetainTerminal,
		live:     make(map[string]*Session),
		stops:    make(map[int]func()),
	}
	r.engine.OnCompleted(func(s *Session) { r.onTerminal(EventCompleted, s) })
	r.engine.OnCancelled(func(s *Session) { r.onTerminal(EventCancelled, s) })
	// The retention sweep runs for the runner's lifetime.
	r.sched.ScheduleRepeating(r.retain, r.sweepTerminal)
	return r
}

// SetNotifier configures the broadcast sink. Must be called before the first
// session starts.
func (r *Runner) SetNotifier(n Notifier) {
	r.notifier = n
}

// SetStatsEvents configures the channel feeding the gamification tracker.
// A nil channel disables stats emission. Must be called before the first
// session starts.
func (r *Runner) SetStatsEvents(ch chan<- Event) {
	r.statsEvents = ch
}

// StartSession configures and starts a new session in one step. The returned
// snapshot is safe to retain.
func (r *Runner) StartSession(d time.Duration, label, room string) (*Session, error) {
	r.mu.Lock()

	if r.store.RunningCount() >= r.maxLive {
		r.mu.Unlock()
		return nil, ErrTooManyActive
	}
	if err := r.validateDuration(d); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	s, err := r.engine.Configure(d, label)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	s.Room = room
	if err := r.engine.Start(s); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	r.store.Update(s) // assigns the slot

	// Invalidate-before-start: a stale timer for this slot would double-tick
	// the new session.
	if stop, ok := r.stops[s.Slot]; ok {
		stop()
		delete(r.stops, s.Slot)
	}
	id := s.ID
	r.stops[s.Slot] = r.sched.ScheduleRepeating(r.interval, func() { r.tick(id) })
	r.live[s.ID] = s

	r.pending = append(r.pending, Event{Type: EventStarted, State: s.Clone(), ActiveCount: r.store.ActiveCount()})
	snapshot := s.Clone()
	pending := r.takePending()
	r.mu.Unlock()

	r.emit(pending)
	return snapshot, nil
}

// PauseSession pauses the session with the given ID.
func (r *Runner) PauseSession(id string) error {
	return r.apply(id, EventPaused, r.engine.Pause)
}

// ResumeSession resumes the session with the given ID.
func (r *Runner) ResumeSession(id string) error {
	return r.apply(id, EventResumed, r.engine.Resume)
}

// CancelSession cancels the session with the given ID.
func (r *Runner) CancelSession(id string) error {
	r.mu.Lock()
	s, ok := r.live[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownSession
	}
	err := r.engine.Cancel(s) // fires onTerminal, which queues the event
	pending := r.takePending()
	r.mu.Unlock()

	r.emit(pending)
	return err
}

// Get returns a snapshot of the session with the given ID.
func (r *Runner) Get(id string) (*Session, bool) {
	return r.store.Get(id)
}

// Sessions returns snapshots of all known sessions.
func (r *Runner) Sessions() []*Session {
	return r.store.GetAll()
}

// apply runs a non-terminal engine operation against a live session.
func (r *Runner) apply(id string, t EventType, op func(*Session) error) error {
	r.mu.Lock()
	s, ok := r.live[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownSession
	}
	if err := op(s); err != nil {
		r.mu.Unlock()
		return err
	}
	r.store.Update(s)
	r.pending = append(r.pending, Event{Type: t, State: s.Clone(), ActiveCount: r.store.ActiveCount()})
	pending := r.takePending()
	r.mu.Unlock()

	r.emit(pending)
	return nil
}

// tick is the scheduler callback for one session. A tick that arrives after
// the session ended finds no live entry and is dropped, matching the
// engine's own tick-after-terminal tolerance.
func (r *Runner) tick(id string) {
	r.mu.Lock()
	s, ok := r.live[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.engine.Tick(s) // may fire onTerminal
	if !s.IsTerminal() {
		r.store.Update(s)
		if s.State == Running {
			r.pending = append(r.pending, Event{Type: EventTick, State: s.Clone(), ActiveCount: r.store.ActiveCount()})
		}
	}
	pending := r.takePending()
	r.mu.Unlock()

	r.emit(pending)
}

// onTerminal is invoked by the engine hooks, under r.mu, exactly once per
// session. It releases the slot's timer and queues the terminal event.
func (r *Runner) onTerminal(t EventType, s *Session) {
	if stop, ok := r.stops[s.Slot]; ok {
		stop()
		delete(r.stops, s.Slot)
	}
	delete(r.live, s.ID)
	r.store.Update(s)
	r.pending = append(r.pending, Event{Type: t, State: s.Clone(), ActiveCount: r.store.ActiveCount()})
}

// sweepTerminal prunes finished sessions once they have lingered past the
// retention window, announcing each removal so clients drop the row. Finished
// sessions stay visible for at least one window so their outcome renders.
func (r *Runner) sweepTerminal() {
	cutoff := time.Now().Add(-r.retain)

	r.mu.Lock()
	for _, s := range r.store.GetAll() {
		if !s.IsTerminal() || s.EndedAt == nil || s.EndedAt.After(cutoff) {
			continue
		}
		r.store.Remove(s.ID)
		r.pending = append(r.pending, Event{Type: EventRemoved, State: s, ActiveCount: r.store.ActiveCount()})
	}
	pending := r.takePending()
	r.mu.Unlock()

	r.emit(pending)
}

func (r *Runner) takePending() []Event {
	pending := r.pending
	r.pending = nil
	return pending
}

// emit dispatches queued events outside the mutex so notification work never
// blocks session operations.
func (r *Runner) emit(events []Event) {
	for _, ev := range events {
		if r.notifier != nil {
			r.notifier.Notify(ev)
		}
		if r.statsEvents == nil {
			continue
		}
		select {
		case r.statsEvents <- ev:
		default:
			r.dropMu.Lock()
			r.statsDropped++
			if time.Since(r.statsLastDropLog) > time.Minute {
				log.Printf("stats channel full, dropped %d events", r.statsDropped)
				r.statsLastDropLog = time.Now()
				r.statsDropped = 0
			}
			r.dropMu.Unlock()
		}
	}
}

func (r *Runner) validateDuration(d time.Duration) error {
	if d < time.Second {
		return ErrInvalidDuration
	}
	if r.custom {
		return nil
	}
	if d%time.Minute != 0 || !r.allowed[int(d/time.Minute)] {
		return ErrDurationNotAllowed
	}
	return nil
}
