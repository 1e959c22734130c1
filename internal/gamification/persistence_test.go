package gamification

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if st.Version != statsVersion {
		t.Errorf("Version = %d, want %d", st.Version, statsVersion)
	}
	if st.SessionsPerDuration == nil || st.SessionsPerRoom == nil || st.AchievementsUnlocked == nil {
		t.Error("Load should initialize all maps")
	}
	if st.WeeklyChallenges.XPAwarded == nil {
		t.Error("Load should initialize weekly challenge maps")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	st := newStats()
	st.TotalSessions = 42
	st.TotalCompletions = 30
	st.TotalFocusSeconds = 45000
	st.CurrentStreak = 4
	st.LongestStreak = 9
	st.LastCompletionDay = "2026-08-24"
	st.SessionsPerDuration["25m"] = 20
	st.SessionsPerRoom["library"] = 3
	st.AchievementsUnlocked["first_focus"] = time.Now().UTC().Truncate(time.Second)
	st.Garden = Garden{Stage: 3, XP: 1200}

	if err := store.Save(st); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.TotalSessions != 42 {
		t.Errorf("TotalSessions = %d, want 42", loaded.TotalSessions)
	}
	if loaded.CurrentStreak != 4 || loaded.LongestStreak != 9 {
		t.Errorf("streak = %d/%d, want 4/9", loaded.CurrentStreak, loaded.LongestStreak)
	}
	if loaded.SessionsPerDuration["25m"] != 20 {
		t.Errorf("SessionsPerDuration[25m] = %d, want 20", loaded.SessionsPerDuration["25m"])
	}
	if loaded.Garden.Stage != 3 || loaded.Garden.XP != 1200 {
		t.Errorf("Garden = %+v, want stage 3 xp 1200", loaded.Garden)
	}
	if _, ok := loaded.AchievementsUnlocked["first_focus"]; !ok {
		t.Error("achievement unlock lost in round-trip")
	}
	if loaded.LastUpdated.IsZero() {
		t.Error("Save should stamp LastUpdated")
	}
}

func TestStoreSaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store := NewStore(dir)

	if err := store.Save(newStats()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("stats file missing after Save: %v", err)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save(newStats()); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	for _, e := range entries {
		if e.Name() != statsFileName {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("Load should fail on corrupt stats rather than silently resetting")
	}
}

func TestStatsClone(t *testing.T) {
	st := newStats()
	st.SessionsPerDuration["25m"] = 1
	initWeeklyChallengeState(&st.WeeklyChallenges)

	cp := st.clone()
	cp.SessionsPerDuration["25m"] = 99
	cp.WeeklyChallenges.Snapshot.CompletionDays["2026-08-24"] = true

	if st.SessionsPerDuration["25m"] != 1 {
		t.Error("clone shares SessionsPerDuration with original")
	}
	if len(st.WeeklyChallenges.Snapshot.CompletionDays) != 0 {
		t.Error("clone shares CompletionDays with original")
	}
}
