package gamification

import (
	"time"
)

const dayLayout = "2006-01-02"

// dayOf returns the UTC calendar day of t.
func dayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// previousDay returns the calendar day before day, or "" if day is malformed.
func previousDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dayLayout)
}

// recordCompletion updates the streak counters for a completion on the given
// day. The first completion of a new day either extends the streak (the
// previous completion was yesterday) or restarts it at 1. Additional
// completions on the same day leave the streak untouched. Returns true if
// the streak advanced to a new day.
func recordCompletion(st *Stats, day string) bool {
	if st.LastCompletionDay == day {
		return false
	}
	if st.LastCompletionDay != "" && st.LastCompletionDay == previousDay(day) {
		st.CurrentStreak++
	} else {
		st.CurrentStreak = 1
	}
	st.LastCompletionDay = day
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	return true
}

// streakAsOf returns the streak the user holds when observed at now: the
// stored count if the last completion was today or yesterday, otherwise 0
// (the streak is broken but the stored counter is only reset by the next
// completion).
func streakAsOf(st *Stats, now time.Time) int {
	today := dayOf(now)
	if st.LastCompletionDay == today || st.LastCompletionDay == previousDay(today) {
		return st.CurrentStreak
	}
	return 0
}

// StreakStatus is the display-ready streak summary.
type StreakStatus struct {
	Current           int    `json:"current"`
	Longest           int    `json:"longest"`
	LastCompletionDay string `json:"lastCompletionDay,omitempty"`
}

// Streak returns the streak as observed at the current time.
func (t *Tracker) Streak() StreakStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return StreakStatus{
		Current:           streakAsOf(t.stats, time.Now()),
		Longest:           t.stats.LongestStreak,
		LastCompletionDay: t.stats.LastCompletionDay,
	}
}
