package gamification

import (
	"testing"
	"time"
)

func TestWeekStartIsMonday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC), "2026-08-24"}, // a Monday
		{time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC), "2026-08-24"},
		{time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC), "2026-08-24"}, // Sunday, same week
		{time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), "2026-08-31"},   // next Monday
	}

	for _, tt := range tests {
		got := weekStart(tt.in)
		if got.Format(dayLayout) != tt.want {
			t.Errorf("weekStart(%s) = %s, want %s", tt.in, got.Format(dayLayout), tt.want)
		}
		if got.Weekday() != time.Monday {
			t.Errorf("weekStart(%s) is a %s, want Monday", tt.in, got.Weekday())
		}
	}
}

func TestSelectChallengesDeterministic(t *testing.T) {
	ws := weekStart(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))

	a := selectChallenges(ws)
	b := selectChallenges(ws)
	if len(a) != challengesPerWeek {
		t.Fatalf("selected %d challenges, want %d", len(a), challengesPerWeek)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("selection not deterministic: %v vs %v", a, b)
			break
		}
	}

	// Every selected ID must resolve in the pool.
	for _, id := range a {
		if _, ok := challengeByID(id); !ok {
			t.Errorf("selected unknown challenge %q", id)
		}
	}
}

func TestRotateChallengesIfNeeded(t *testing.T) {
	var state WeeklyChallengeState
	initWeeklyChallengeState(&state)

	week1 := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	if !RotateChallengesIfNeeded(&state, week1) {
		t.Error("first rotation should occur")
	}
	state.Snapshot.TotalCompletions = 4
	state.XPAwarded["complete_5"] = true

	// Same week: no rotation, snapshot retained.
	if RotateChallengesIfNeeded(&state, week1.Add(48*time.Hour)) {
		t.Error("rotation within the same week")
	}
	if state.Snapshot.TotalCompletions != 4 {
		t.Error("snapshot reset without rotation")
	}

	// Next week: rotation clears the snapshot and awards.
	if !RotateChallengesIfNeeded(&state, week1.AddDate(0, 0, 7)) {
		t.Error("rotation at week boundary should occur")
	}
	if state.Snapshot.TotalCompletions != 0 {
		t.Error("snapshot not reset on rotation")
	}
	if len(state.XPAwarded) != 0 {
		t.Error("XPAwarded not reset on rotation")
	}
	if len(state.ActiveIDs) != challengesPerWeek {
		t.Errorf("ActiveIDs length = %d, want %d", len(state.ActiveIDs), challengesPerWeek)
	}
}

func TestEvaluateChallenges(t *testing.T) {
	var state WeeklyChallengeState
	initWeeklyChallengeState(&state)
	state.ActiveIDs = []string{"complete_5", "focus_300_min", "show_up_3"}
	state.Snapshot.TotalCompletions = 5
	state.Snapshot.FocusSeconds = 150 * 60
	state.Snapshot.CompletionDays = map[string]bool{"2026-08-24": true}

	progress := EvaluateChallenges(&state)
	if len(progress) != 3 {
		t.Fatalf("progress length = %d, want 3", len(progress))
	}

	byID := make(map[string]ChallengeProgress)
	for _, p := range progress {
		byID[p.ID] = p
	}

	if p := byID["complete_5"]; !p.Complete || p.Current != 5 {
		t.Errorf("complete_5 = %+v, want complete at 5", p)
	}
	if p := byID["focus_300_min"]; p.Complete || p.Current != 150 {
		t.Errorf("focus_300_min = %+v, want incomplete at 150", p)
	}
	if p := byID["show_up_3"]; p.Complete || p.Current != 1 {
		t.Errorf("show_up_3 = %+v, want incomplete at 1", p)
	}
}

func TestChallengePoolIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range challengePool() {
		if seen[c.ID] {
			t.Errorf("duplicate challenge ID %q", c.ID)
		}
		seen[c.ID] = true
	}
}
