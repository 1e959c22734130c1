package gamification

import (
	"time"
)

// Tier represents an achievement's difficulty level.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Category groups related achievements in the UI.
type Category string

const (
	CategorySessionMilestones Category = "Session Milestones"
	CategoryStreaks           Category = "Streaks"
	CategoryConsistency       Category = "Consistency"
	CategoryDeepFocus         Category = "Deep Focus"
	CategoryCommunity         Category = "Community"
	CategoryGarden            Category = "Garden"
)

// Achievement describes a single unlockable goal.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Tier        Tier
	Category    Category
	// Condition reports whether the achievement should be awarded given a Stats snapshot.
	Condition func(*Stats) bool
}

// AchievementEngine holds the complete achievement registry and evaluates
// which achievements become newly unlocked against a Stats snapshot.
type AchievementEngine struct {
	registry []Achievement
}

// NewAchievementEngine creates an engine pre-loaded with the full achievement set.
func NewAchievementEngine() *AchievementEngine {
	return &AchievementEngine{registry: buildRegistry()}
}

// Registry returns a shallow copy of all registered achievements.
func (e *AchievementEngine) Registry() []Achievement {
	out := make([]Achievement, len(e.registry))
	copy(out, e.registry)
	return out
}

// Evaluate checks every not-yet-unlocked achievement against stats.
// Newly passing achievements are recorded in stats.AchievementsUnlocked
// with the current UTC timestamp and returned. The caller is responsible
// for persisting stats after this call.
func (e *AchievementEngine) Evaluate(stats *Stats) []Achievement {
	now := time.Now().UTC()
	var unlocked []Achievement
	for _, a := range e.registry {
		if _, already := stats.AchievementsUnlocked[a.ID]; already {
			continue
		}
		if a.Condition(stats) {
			stats.AchievementsUnlocked[a.ID] = now
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// focusHours returns the all-time focus total in whole hours.
func focusHours(stats *Stats) int {
	return int(stats.TotalFocusSeconds / 3600)
}

// longSessions returns the completed-session count for the 45 and 60 minute
// presets combined.
func longSessions(stats *Stats) int {
	return stats.SessionsPerDuration["45m"] + stats.SessionsPerDuration["60m"]
}

func buildRegistry() []Achievement {
	return []Achievement{

		// ── Session Milestones ─────────────────────────────────────────────

		{
			ID: "first_focus", Name: "First Focus",
			Description: "Complete your first focus session",
			Tier:        TierBronze, Category: CategorySessionMilestones,
			Condition: func(s *Stats) bool { return s.TotalCompletions >= 1 },
		},
		{
			ID: "finding_rhythm", Name: "Finding a Rhythm",
			Description: "Complete 10 focus sessions",
			Tier:        TierBronze, Category: CategorySessionMilestones,
			Condition: func(s *Stats) bool { return s.TotalCompletions >= 10 },
		},
		{
			ID: "habit_former", Name: "Habit Former",
			Description: "Complete 50 focus sessions",
			Tier:        TierSilver, Category: CategorySessionMilestones,
			Condition: func(s *Stats) bool { return s.TotalCompletions >= 50 },
		},
		{
			ID: "centurion", Name: "Centurion",
			Description: "Complete 100 focus sessions",
			Tier:        TierGold, Category: CategorySessionMilestones,
			Condition: func(s *Stats) bool { return s.TotalCompletions >= 100 },
		},
		{
			ID: "devoted", Name: "Devoted",
			Description: "Complete 500 focus sessions",
			Tier:        TierPlatinum, Category: CategorySessionMilestones,
			Condition: func(s *Stats) bool { return s.TotalCompletions >= 500 },
		},

		// ── Streaks ────────────────────────────────────────────────────────

		{
			ID: "three_in_a_row", Name: "Three in a Row",
			Description: "Complete a session on 3 consecutive days",
			Tier:        TierBronze, Category: CategoryStreaks,
			Condition: func(s *Stats) bool { return s.LongestStreak >= 3 },
		},
		{
			ID: "week_strong", Name: "Week Strong",
			Description: "Complete a session on 7 consecutive days",
			Tier:        TierSilver, Category: CategoryStreaks,
			Condition: func(s *Stats) bool { return s.LongestStreak >= 7 },
		},
		{
			ID: "monthly_bloom", Name: "Monthly Bloom",
			Description: "Complete a session on 30 consecutive days",
			Tier:        TierGold, Category: CategoryStreaks,
			Condition: func(s *Stats) bool { return s.LongestStreak >= 30 },
		},
		{
			ID: "unbreakable", Name: "Unbreakable",
			Description: "Complete a session on 100 consecutive days",
			Tier:        TierPlatinum, Category: CategoryStreaks,
			Condition: func(s *Stats) bool { return s.LongestStreak >= 100 },
		},

		// ── Consistency ────────────────────────────────────────────────────

		{
			ID: "no_bail_3", Name: "Seeing It Through",
			Description: "Finish 3 sessions in a row without cancelling",
			Tier:        TierBronze, Category: CategoryConsistency,
			Condition: func(s *Stats) bool { return s.ConsecutiveCompletions >= 3 },
		},
		{
			ID: "no_bail_10", Name: "Iron Will",
			Description: "Finish 10 sessions in a row without cancelling",
			Tier:        TierSilver, Category: CategoryConsistency,
			Condition: func(s *Stats) bool { return s.ConsecutiveCompletions >= 10 },
		},
		{
			ID: "no_bail_25", Name: "Untouchable",
			Description: "Finish 25 sessions in a row without cancelling",
			Tier:        TierGold, Category: CategoryConsistency,
			Condition: func(s *Stats) bool { return s.ConsecutiveCompletions >= 25 },
		},
		{
			ID: "comeback", Name: "Comeback",
			Description: "Cancel a session, then complete the next one",
			Tier:        TierBronze, Category: CategoryConsistency,
			Condition: func(s *Stats) bool {
				return s.TotalCancellations >= 1 && s.TotalCompletions >= 1
			},
		},

		// ── Deep Focus ─────────────────────────────────────────────────────

		{
			ID: "first_hour", Name: "First Hour",
			Description: "Accumulate 1 hour of completed focus time",
			Tier:        TierBronze, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool { return focusHours(s) >= 1 },
		},
		{
			ID: "ten_hours", Name: "Ten Hours Deep",
			Description: "Accumulate 10 hours of completed focus time",
			Tier:        TierSilver, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool { return focusHours(s) >= 10 },
		},
		{
			ID: "hundred_hours", Name: "Hundred Hour Club",
			Description: "Accumulate 100 hours of completed focus time",
			Tier:        TierGold, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool { return focusHours(s) >= 100 },
		},
		{
			ID: "full_hour", Name: "The Full Hour",
			Description: "Complete a 60-minute session",
			Tier:        TierBronze, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool { return s.SessionsPerDuration["60m"] >= 1 },
		},
		{
			ID: "long_hauler", Name: "Long Hauler",
			Description: "Complete 10 sessions of 45 minutes or longer",
			Tier:        TierSilver, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool { return longSessions(s) >= 10 },
		},
		{
			ID: "sampler", Name: "Sampler",
			Description: "Complete a session at every preset length",
			Tier:        TierSilver, Category: CategoryDeepFocus,
			Condition: func(s *Stats) bool {
				return s.SessionsPerDuration["15m"] >= 1 &&
					s.SessionsPerDuration["25m"] >= 1 &&
					s.SessionsPerDuration["45m"] >= 1 &&
					s.SessionsPerDuration["60m"] >= 1
			},
		},

		// ── Community ──────────────────────────────────────────────────────

		{
			ID: "better_together", Name: "Better Together",
			Description: "Complete a session in a body-doubling room",
			Tier:        TierBronze, Category: CategoryCommunity,
			Condition: func(s *Stats) bool { return len(s.SessionsPerRoom) >= 1 },
		},
		{
			ID: "room_regular", Name: "Room Regular",
			Description: "Complete 10 sessions in body-doubling rooms",
			Tier:        TierSilver, Category: CategoryCommunity,
			Condition: func(s *Stats) bool {
				total := 0
				for _, n := range s.SessionsPerRoom {
					total += n
				}
				return total >= 10
			},
		},
		{
			ID: "parallel_focus", Name: "Parallel Focus",
			Description: "Run 2 or more sessions at the same time",
			Tier:        TierBronze, Category: CategoryCommunity,
			Condition: func(s *Stats) bool { return s.MaxConcurrentActive >= 2 },
		},

		// ── Garden ─────────────────────────────────────────────────────────

		{
			ID: "green_thumb", Name: "Green Thumb",
			Description: "Grow your plant to the blooming stage",
			Tier:        TierSilver, Category: CategoryGarden,
			Condition: func(s *Stats) bool { return s.Garden.Stage >= 6 },
		},
		{
			ID: "ancient_grove", Name: "Ancient Grove",
			Description: "Grow your plant to its final stage",
			Tier:        TierGold, Category: CategoryGarden,
			Condition: func(s *Stats) bool { return s.Garden.Stage >= maxStage },
		},
	}
}
