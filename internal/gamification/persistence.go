package gamification

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// statsVersion is bumped when the schema changes. The Load function
	// can use it to apply migrations in the future.
	statsVersion = 1

	statsFileName = "stats.json"
	appDirName    = "tasksnap"
)

// Stats is the persistent aggregate data for the gamification system.
// It is loaded from and saved to ~/.local/state/tasksnap/stats.json
// (respecting XDG_STATE_HOME).
type Stats struct {
	Version int `json:"version"`

	// Aggregate counters
	TotalSessions          int   `json:"totalSessions"`
	TotalCompletions       int   `json:"totalCompletions"`
	TotalCancellations     int   `json:"totalCancellations"`
	ConsecutiveCompletions int   `json:"consecutiveCompletions"`
	TotalFocusSeconds      int64 `json:"totalFocusSeconds"`

	// Per-dimension breakdowns
	SessionsPerDuration map[string]int `json:"sessionsPerDuration"` // keyed by "25m" etc.
	SessionsPerRoom     map[string]int `json:"sessionsPerRoom"`

	// Peak metrics (all-time highs)
	MaxConcurrentActive   int     `json:"maxConcurrentActive"`
	MaxSessionDurationSec float64 `json:"maxSessionDurationSec"` // wall time, pauses included

	// Daily completion streak
	CurrentStreak     int    `json:"currentStreak"`
	LongestStreak     int    `json:"longestStreak"`
	LastCompletionDay string `json:"lastCompletionDay,omitempty"` // UTC, "2006-01-02"

	// Gamification state
	AchievementsUnlocked map[string]time.Time `json:"achievementsUnlocked"`
	Garden               Garden               `json:"garden"`
	WeeklyChallenges     WeeklyChallengeState `json:"weeklyChallenges"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// Store handles loading and saving Stats to disk.
type Store struct {
	dir string // directory containing stats.json
}

// NewStore creates a Store that reads/writes stats in the given directory.
// The directory is created (with parents) on the first Save if it does not
// exist. Pass an empty string to use the default XDG state path.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultStatsDir()
	}
	return &Store{dir: dir}
}

// Path returns the full path to the stats file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, statsFileName)
}

// Load reads stats from disk. If the file does not exist, a zero-value
// Stats with initialized maps and the current version is returned.
func (s *Store) Load() (*Stats, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return newStats(), nil
		}
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	var st Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing stats: %w", err)
	}
	st.initMaps()

	return &st, nil
}

// Save writes stats to disk using an atomic temp-file-then-rename pattern.
// The directory is created if it does not already exist.
func (s *Store) Save(st *Stats) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating stats dir: %w", err)
	}

	st.Version = statsVersion
	st.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".stats-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("renaming stats file: %w", err)
	}
	committed = true

	return nil
}

// newStats returns a Stats with initialized maps and the current version.
func newStats() *Stats {
	st := &Stats{
		Version:              statsVersion,
		SessionsPerDuration:  make(map[string]int),
		SessionsPerRoom:      make(map[string]int),
		AchievementsUnlocked: make(map[string]time.Time),
	}
	initWeeklyChallengeState(&st.WeeklyChallenges)
	return st
}

// initMaps ensures all map fields are non-nil after deserialization.
func (st *Stats) initMaps() {
	if st.SessionsPerDuration == nil {
		st.SessionsPerDuration = make(map[string]int)
	}
	if st.SessionsPerRoom == nil {
		st.SessionsPerRoom = make(map[string]int)
	}
	if st.AchievementsUnlocked == nil {
		st.AchievementsUnlocked = make(map[string]time.Time)
	}
	initWeeklyChallengeState(&st.WeeklyChallenges)
}

// clone returns a deep copy of Stats with all maps duplicated.
func (st *Stats) clone() *Stats {
	cp := *st
	cp.SessionsPerDuration = make(map[string]int, len(st.SessionsPerDuration))
	for k, v := range st.SessionsPerDuration {
		cp.SessionsPerDuration[k] = v
	}
	cp.SessionsPerRoom = make(map[string]int, len(st.SessionsPerRoom))
	for k, v := range st.SessionsPerRoom {
		cp.SessionsPerRoom[k] = v
	}
	cp.AchievementsUnlocked = make(map[string]time.Time, len(st.AchievementsUnlocked))
	for k, v := range st.AchievementsUnlocked {
		cp.AchievementsUnlocked[k] = v
	}
	cp.WeeklyChallenges.ActiveIDs = make([]string, len(st.WeeklyChallenges.ActiveIDs))
	copy(cp.WeeklyChallenges.ActiveIDs, st.WeeklyChallenges.ActiveIDs)
	cp.WeeklyChallenges.XPAwarded = make(map[string]bool, len(st.WeeklyChallenges.XPAwarded))
	for k, v := range st.WeeklyChallenges.XPAwarded {
		cp.WeeklyChallenges.XPAwarded[k] = v
	}
	cp.WeeklyChallenges.Snapshot.SessionsPerDuration = make(map[string]int, len(st.WeeklyChallenges.Snapshot.SessionsPerDuration))
	for k, v := range st.WeeklyChallenges.Snapshot.SessionsPerDuration {
		cp.WeeklyChallenges.Snapshot.SessionsPerDuration[k] = v
	}
	cp.WeeklyChallenges.Snapshot.CompletionDays = make(map[string]bool, len(st.WeeklyChallenges.Snapshot.CompletionDays))
	for k, v := range st.WeeklyChallenges.Snapshot.CompletionDays {
		cp.WeeklyChallenges.Snapshot.CompletionDays[k] = v
	}
	return &cp
}

// defaultStatsDir returns ~/.local/state/tasksnap, respecting
// XDG_STATE_HOME if set.
func defaultStatsDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
