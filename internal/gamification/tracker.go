package gamification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tasksnap/focusd/internal/session"
)

const defaultSaveInterval = 30 * time.Second

// AchievementCallback is invoked for each newly unlocked achievement.
type AchievementCallback func(achievement Achievement)

// StreakCallback is invoked whenever the daily streak advances.
type StreakCallback func(status StreakStatus)

// GardenCallback is invoked when XP is awarded, with a short reason string.
type GardenCallback func(progress GardenProgress, reason string)

// Tracker observes session lifecycle events and maintains the aggregate
// gamification stats. It receives events from the runner via a channel and
// periodically persists the accumulated stats to disk. Construct one
// explicitly and inject it where needed; there is no package-level instance,
// so tests get a fresh tracker each.
type Tracker struct {
	persist      *Store
	stats        *Stats
	events       chan session.Event
	saveInterval time.Duration
	mu           sync.Mutex
	dirty        bool
	counted      map[string]bool // session IDs already counted for TotalSessions

	achieveEngine *AchievementEngine
	onAchievement AchievementCallback
	onStreak      StreakCallback
	onGarden      GardenCallback
}

// NewTracker creates a Tracker backed by the given persistence store. It
// loads existing stats from disk and returns a send-only channel for the
// runner to deliver events on. A saveInterval of 0 selects the default.
// The caller must run Run in a goroutine.
func NewTracker(persist *Store, saveInterval time.Duration) (*Tracker, chan<- session.Event, error) {
	stats, err := persist.Load()
	if err != nil {
		return nil, nil, err
	}
	if saveInterval <= 0 {
		saveInterval = defaultSaveInterval
	}
	ch := make(chan session.Event, 256)
	t := &Tracker{
		persist:       persist,
		stats:         stats,
		events:        ch,
		saveInterval:  saveInterval,
		counted:       make(map[string]bool),
		achieveEngine: NewAchievementEngine(),
	}
	return t, ch, nil
}

// OnAchievement registers a callback invoked whenever an achievement unlocks.
// Must be called before Run.
func (t *Tracker) OnAchievement(cb AchievementCallback) {
	t.onAchievement = cb
}

// OnStreak registers a callback invoked whenever the daily streak advances.
// Must be called before Run.
func (t *Tracker) OnStreak(cb StreakCallback) {
	t.onStreak = cb
}

// OnGarden registers a callback invoked whenever XP is awarded.
// Must be called before Run.
func (t *Tracker) OnGarden(cb GardenCallback) {
	t.onGarden = cb
}

// Run processes events and periodically saves dirty stats to disk.
// It blocks until ctx is cancelled, then performs a final save.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.save()
			return
		case ev := <-t.events:
			t.processEvent(ev)
		case <-ticker.C:
			if t.dirty {
				t.save()
			}
		}
	}
}

// Stats returns a deep copy of the current aggregate stats.
func (t *Tracker) Stats() *Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.clone()
}

// Achievements returns the full registry with unlock timestamps applied.
func (t *Tracker) Achievements() []UnlockedAchievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	registry := t.achieveEngine.Registry()
	out := make([]UnlockedAchievement, 0, len(registry))
	for _, a := range registry {
		ua := UnlockedAchievement{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Tier:        a.Tier,
			Category:    a.Category,
		}
		if when, ok := t.stats.AchievementsUnlocked[a.ID]; ok {
			u := when
			ua.UnlockedAt = &u
		}
		out = append(out, ua)
	}
	return out
}

// UnlockedAchievement is the JSON-serializable view of an achievement plus
// its unlock time, nil when still locked.
type UnlockedAchievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tier        Tier       `json:"tier"`
	Category    Category   `json:"category"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Challenges returns the current weekly challenge progress.
func (t *Tracker) Challenges() []ChallengeProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	RotateChallengesIfNeeded(&t.stats.WeeklyChallenges, time.Now())
	return EvaluateChallenges(&t.stats.WeeklyChallenges)
}

func (t *Tracker) processEvent(ev session.Event) {
	t.mu.Lock()

	s := ev.State
	now := time.Now()

	// Ensure weekly challenges are rotated before processing.
	RotateChallengesIfNeeded(&t.stats.WeeklyChallenges, now)
	wc := &t.stats.WeeklyChallenges

	streakAdvanced := false
	xpAwarded := 0
	xpReason := ""

	switch ev.Type {
	case session.EventStarted:
		if t.counted[s.ID] {
			t.mu.Unlock()
			return
		}
		t.counted[s.ID] = true
		t.stats.TotalSessions++
		if ev.ActiveCount > t.stats.MaxConcurrentActive {
			t.stats.MaxConcurrentActive = ev.ActiveCount
		}
		xpAwarded += XPSessionStarted
		xpReason = "session started"
		wc.Snapshot.TotalSessions++

	case session.EventTick:
		if ev.ActiveCount > t.stats.MaxConcurrentActive {
			t.stats.MaxConcurrentActive = ev.ActiveCount
			t.dirty = true
		}
		t.mu.Unlock()
		return // ticks carry nothing else worth persisting

	case session.EventPaused, session.EventResumed, session.EventRemoved:
		t.mu.Unlock()
		return

	case session.EventCompleted:
		key := durationKey(s.PlannedSeconds)
		t.stats.TotalCompletions++
		t.stats.ConsecutiveCompletions++
		t.stats.TotalFocusSeconds += int64(s.PlannedSeconds)
		t.stats.SessionsPerDuration[key]++
		xpAwarded += XPSessionCompleted
		xpReason = "session completed"
		if t.stats.SessionsPerDuration[key] == 1 {
			xpAwarded += XPNewDuration
		}

		day := dayOf(now)
		if recordCompletion(t.stats, day) {
			streakAdvanced = true
			xpAwarded += XPStreakDay
		}

		if s.Room != "" {
			t.stats.SessionsPerRoom[s.Room]++
			if t.stats.SessionsPerRoom[s.Room] == 1 {
				xpAwarded += XPNewRoom
			}
			wc.Snapshot.RoomSessions++
		}

		if s.EndedAt != nil && !s.StartedAt.IsZero() {
			dur := s.EndedAt.Sub(s.StartedAt).Seconds()
			if dur > t.stats.MaxSessionDurationSec {
				t.stats.MaxSessionDurationSec = dur
			}
		}

		wc.Snapshot.TotalCompletions++
		wc.Snapshot.FocusSeconds += s.PlannedSeconds
		wc.Snapshot.SessionsPerDuration[key]++
		wc.Snapshot.CompletionDays[day] = true

		delete(t.counted, s.ID)

	case session.EventCancelled:
		t.stats.TotalCancellations++
		t.stats.ConsecutiveCompletions = 0
		wc.Snapshot.TotalCancellations++
		delete(t.counted, s.ID)
	}

	// Award XP for newly completed weekly challenges.
	for _, cp := range EvaluateChallenges(wc) {
		if cp.Complete && !wc.XPAwarded[cp.ID] {
			wc.XPAwarded[cp.ID] = true
			xpAwarded += XPWeeklyChallenge
		}
	}

	// Evaluate achievements while still holding the lock so stats are
	// consistent; achievement unlocks themselves award XP.
	unlocked := t.achieveEngine.Evaluate(t.stats)
	for _, a := range unlocked {
		xpAwarded += AchievementXP(a.Tier)
	}

	var gardenProgress GardenProgress
	if xpAwarded > 0 {
		awardXP(&t.stats.Garden, xpAwarded)
		gardenProgress = getProgress(&t.stats.Garden)
	}

	var streakStatus StreakStatus
	if streakAdvanced {
		streakStatus = StreakStatus{
			Current:           t.stats.CurrentStreak,
			Longest:           t.stats.LongestStreak,
			LastCompletionDay: t.stats.LastCompletionDay,
		}
	}

	t.dirty = true
	t.mu.Unlock()

	// Dispatch callbacks outside the lock to avoid holding it during broadcast.
	if t.onAchievement != nil {
		for _, a := range unlocked {
			t.onAchievement(a)
		}
	}
	if streakAdvanced && t.onStreak != nil {
		t.onStreak(streakStatus)
	}
	if xpAwarded > 0 && t.onGarden != nil {
		t.onGarden(gardenProgress, xpReason)
	}
}

func (t *Tracker) save() {
	t.mu.Lock()
	stats := t.stats.clone()
	t.dirty = false
	t.mu.Unlock()

	if err := t.persist.Save(stats); err != nil {
		log.Printf("Failed to save stats: %v", err)
	}
}

// durationKey buckets a planned duration for the per-duration breakdowns:
// whole minutes as "25m", anything else in seconds as "90s".
func durationKey(plannedSeconds int) string {
	if plannedSeconds%60 == 0 {
		return fmt.Sprintf("%dm", plannedSeconds/60)
	}
	return fmt.Sprintf("%ds", plannedSeconds)
}
