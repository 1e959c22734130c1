package gamification

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"
)

// Challenge describes a single weekly challenge goal.
type Challenge struct {
	ID          string
	Description string
	// Progress evaluates how far the player is toward completing this challenge.
	// It returns (current, target) where current >= target means complete.
	Progress func(snap *WeekSnapshot) (current, target int)
}

// WeekSnapshot captures the stats delta for the current challenge week.
// Challenges evaluate progress against these values, not all-time Stats.
type WeekSnapshot struct {
	TotalSessions       int             `json:"totalSessions"`
	TotalCompletions    int             `json:"totalCompletions"`
	TotalCancellations  int             `json:"totalCancellations"`
	FocusSeconds        int             `json:"focusSeconds"`
	SessionsPerDuration map[string]int  `json:"sessionsPerDuration"`
	RoomSessions        int             `json:"roomSessions"`
	CompletionDays      map[string]bool `json:"completionDays"`
}

// ChallengeProgress is the JSON-serializable progress for a single active challenge.
type ChallengeProgress struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Current     int    `json:"current"`
	Target      int    `json:"target"`
	Complete    bool   `json:"complete"`
}

// WeeklyChallengeState is persisted in Stats to track the current week's challenges.
type WeeklyChallengeState struct {
	WeekStart time.Time       `json:"weekStart"`
	ActiveIDs []string        `json:"activeIds"`
	Snapshot  WeekSnapshot    `json:"snapshot"`
	XPAwarded map[string]bool `json:"xpAwarded"`
}

const challengesPerWeek = 3

// challengePool returns the full set of available challenges.
func challengePool() []Challenge {
	return []Challenge{
		{
			ID:          "complete_5",
			Description: "Complete 5 focus sessions this week",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.TotalCompletions, 5
			},
		},
		{
			ID:          "complete_10",
			Description: "Complete 10 focus sessions this week",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.TotalCompletions, 10
			},
		},
		{
			ID:          "focus_300_min",
			Description: "Focus for 300 minutes this week",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.FocusSeconds / 60, 300
			},
		},
		{
			ID:          "focus_600_min",
			Description: "Focus for 600 minutes this week",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.FocusSeconds / 60, 600
			},
		},
		{
			ID:          "long_sessions_3",
			Description: "Complete 3 sessions of 45 minutes or longer",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.SessionsPerDuration["45m"] + snap.SessionsPerDuration["60m"], 3
			},
		},
		{
			ID:          "quarter_stack",
			Description: "Complete 6 classic 25-minute sessions",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.SessionsPerDuration["25m"], 6
			},
		},
		{
			ID:          "show_up_3",
			Description: "Complete a session on 3 different days",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return len(snap.CompletionDays), 3
			},
		},
		{
			ID:          "show_up_5",
			Description: "Complete a session on 5 different days",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return len(snap.CompletionDays), 5
			},
		},
		{
			ID:          "room_2",
			Description: "Complete 2 sessions in a body-doubling room",
			Progress: func(snap *WeekSnapshot) (int, int) {
				return snap.RoomSessions, 2
			},
		},
	}
}

// challengeByID returns the Challenge from the pool with the given ID, or ok=false.
func challengeByID(id string) (Challenge, bool) {
	for _, c := range challengePool() {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}

// weekStart returns the Monday 00:00 UTC of the ISO week containing t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	y, w := t.ISOWeek()
	// Jan 4 is always in week 1 of its year.
	jan4 := time.Date(y, 1, 4, 0, 0, 0, 0, time.UTC)
	_, jan4Week := jan4.ISOWeek()
	// Monday of week 1
	monday := jan4.AddDate(0, 0, -int(jan4.Weekday()-time.Monday))
	if jan4.Weekday() == time.Sunday {
		monday = jan4.AddDate(0, 0, -6)
	}
	return monday.AddDate(0, 0, (w-jan4Week)*7)
}

// selectChallenges deterministically picks challengesPerWeek challenges
// for the given week start time using a hash-based shuffle.
func selectChallenges(ws time.Time) []string {
	pool := challengePool()
	n := len(pool)

	// Seed a deterministic ordering from the week timestamp.
	h := sha256.Sum256([]byte(ws.Format(time.RFC3339)))
	seed := binary.BigEndian.Uint64(h[:8])

	// Build index array and shuffle using Fisher-Yates with the seed.
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := n - 1; i > 0; i-- {
		seed = seed*6364136223846793005 + 1442695040888963407 // LCG step
		j := int(seed % uint64(i+1))
		indices[i], indices[j] = indices[j], indices[i]
	}

	count := challengesPerWeek
	if count > n {
		count = n
	}
	ids := make([]string, count)
	for i := 0; i < count; i++ {
		ids[i] = pool[indices[i]].ID
	}
	sort.Strings(ids)
	return ids
}

// EvaluateChallenges computes progress for the active weekly challenges.
func EvaluateChallenges(state *WeeklyChallengeState) []ChallengeProgress {
	out := make([]ChallengeProgress, 0, len(state.ActiveIDs))
	for _, id := range state.ActiveIDs {
		c, ok := challengeByID(id)
		if !ok {
			continue
		}
		cur, tgt := c.Progress(&state.Snapshot)
		out = append(out, ChallengeProgress{
			ID:          c.ID,
			Description: c.Description,
			Current:     cur,
			Target:      tgt,
			Complete:    cur >= tgt,
		})
	}
	return out
}

// RotateChallengesIfNeeded checks whether the current week has changed and
// rotates the active challenge set. Returns true if rotation occurred.
func RotateChallengesIfNeeded(state *WeeklyChallengeState, now time.Time) bool {
	ws := weekStart(now)
	if !state.WeekStart.IsZero() && ws.Equal(state.WeekStart) {
		return false
	}
	state.WeekStart = ws
	state.ActiveIDs = selectChallenges(ws)
	state.Snapshot = WeekSnapshot{
		SessionsPerDuration: make(map[string]int),
		CompletionDays:      make(map[string]bool),
	}
	state.XPAwarded = make(map[string]bool)
	return true
}

// initWeeklyChallengeState ensures the state has initialized maps.
func initWeeklyChallengeState(s *WeeklyChallengeState) {
	if s.Snapshot.SessionsPerDuration == nil {
		s.Snapshot.SessionsPerDuration = make(map[string]int)
	}
	if s.Snapshot.CompletionDays == nil {
		s.Snapshot.CompletionDays = make(map[string]bool)
	}
	if s.XPAwarded == nil {
		s.XPAwarded = make(map[string]bool)
	}
}
