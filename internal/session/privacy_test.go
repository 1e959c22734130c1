package session

import (
	"testing"
)

func TestPrivacyFilterNoop(t *testing.T) {
	f := &PrivacyFilter{}
	if !f.IsNoop() {
		t.Error("zero-value filter should be a no-op")
	}

	s := &Session{ID: "s-1", Label: "tax paperwork", Room: "library"}
	got := f.Apply(s)
	if got.Label != "tax paperwork" || got.ID != "s-1" {
		t.Errorf("no-op filter changed fields: %+v", got)
	}
}

func TestPrivacyFilterMasksLabels(t *testing.T) {
	f := &PrivacyFilter{MaskLabels: true}

	s := &Session{ID: "s-1", Label: "tax paperwork"}
	got := f.Apply(s)
	if got.Label != maskedLabel {
		t.Errorf("Label = %q, want %q", got.Label, maskedLabel)
	}
	if s.Label != "tax paperwork" {
		t.Error("Apply mutated the original session")
	}

	// Empty labels stay empty rather than gaining a placeholder.
	empty := &Session{ID: "s-2"}
	if got := f.Apply(empty); got.Label != "" {
		t.Errorf("empty label became %q", got.Label)
	}
}

func TestPrivacyFilterMasksIDs(t *testing.T) {
	f := &PrivacyFilter{MaskSessionIDs: true}

	s := &Session{ID: "s-secret"}
	got := f.Apply(s)
	if got.ID == "s-secret" || got.ID == "" {
		t.Errorf("ID = %q, want a masked non-empty value", got.ID)
	}

	// Masking is deterministic so clients can correlate updates.
	again := f.Apply(s)
	if got.ID != again.ID {
		t.Errorf("masked IDs differ across calls: %q vs %q", got.ID, again.ID)
	}
}

func TestPrivacyFilterHiddenRooms(t *testing.T) {
	f := &PrivacyFilter{HiddenRooms: []string{"private"}}

	sessions := []*Session{
		{ID: "a", Room: "library"},
		{ID: "b", Room: "private"},
		{ID: "c"},
	}
	got := f.FilterSlice(sessions)
	if len(got) != 2 {
		t.Fatalf("FilterSlice returned %d sessions, want 2", len(got))
	}
	for _, s := range got {
		if s.Room == "private" {
			t.Errorf("hidden-room session %q leaked through filter", s.ID)
		}
	}
}
