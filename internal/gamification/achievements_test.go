package gamification

import (
	"testing"
)

func TestRegistryIDsUnique(t *testing.T) {
	engine := NewAchievementEngine()
	seen := make(map[string]bool)
	for _, a := range engine.Registry() {
		if a.ID == "" {
			t.Error("achievement with empty ID")
		}
		if seen[a.ID] {
			t.Errorf("duplicate achievement ID %q", a.ID)
		}
		seen[a.ID] = true
		if a.Condition == nil {
			t.Errorf("achievement %q has no condition", a.ID)
		}
	}
}

func TestEvaluateUnlocksOnce(t *testing.T) {
	engine := NewAchievementEngine()
	st := newStats()
	st.TotalCompletions = 1

	first := engine.Evaluate(st)
	if len(first) == 0 {
		t.Fatal("expected at least one unlock for a first completion")
	}
	found := false
	for _, a := range first {
		if a.ID == "first_focus" {
			found = true
		}
	}
	if !found {
		t.Error("first_focus not in the unlock set")
	}

	// Re-evaluating the same stats must not unlock anything again.
	if again := engine.Evaluate(st); len(again) != 0 {
		t.Errorf("re-evaluation unlocked %d achievements, want 0", len(again))
	}

	if when, ok := st.AchievementsUnlocked["first_focus"]; !ok || when.IsZero() {
		t.Error("unlock timestamp not recorded")
	}
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Stats)
		id    string
	}{
		{"ten completions", func(s *Stats) { s.TotalCompletions = 10 }, "finding_rhythm"},
		{"week streak", func(s *Stats) { s.LongestStreak = 7 }, "week_strong"},
		{"consecutive completions", func(s *Stats) { s.ConsecutiveCompletions = 3 }, "no_bail_3"},
		{"focus hours", func(s *Stats) { s.TotalFocusSeconds = 10 * 3600 }, "ten_hours"},
		{"sixty minute session", func(s *Stats) { s.SessionsPerDuration["60m"] = 1 }, "full_hour"},
		{"long sessions combined", func(s *Stats) {
			s.SessionsPerDuration["45m"] = 6
			s.SessionsPerDuration["60m"] = 4
		}, "long_hauler"},
		{"all presets", func(s *Stats) {
			for _, k := range []string{"15m", "25m", "45m", "60m"} {
				s.SessionsPerDuration[k] = 1
			}
		}, "sampler"},
		{"room completion", func(s *Stats) { s.SessionsPerRoom["library"] = 1 }, "better_together"},
		{"concurrent sessions", func(s *Stats) { s.MaxConcurrentActive = 2 }, "parallel_focus"},
		{"garden bloom", func(s *Stats) { s.Garden.Stage = 6 }, "green_thumb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewAchievementEngine()
			st := newStats()
			tt.setup(st)

			unlocked := engine.Evaluate(st)
			found := false
			for _, a := range unlocked {
				if a.ID == tt.id {
					found = true
				}
			}
			if !found {
				t.Errorf("%s not unlocked, got %v", tt.id, ids(unlocked))
			}
		})
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	engine := NewAchievementEngine()
	st := newStats()
	st.TotalCompletions = 9

	for _, a := range engine.Evaluate(st) {
		if a.ID == "finding_rhythm" {
			t.Error("finding_rhythm unlocked at 9 completions")
		}
	}
}

func ids(as []Achievement) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
