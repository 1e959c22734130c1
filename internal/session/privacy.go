package session

import (
	"crypto/sha256"
	"fmt"
)

// PrivacyFilter applies masking and room-based filtering to session state
// before it is broadcast to clients. Room-mates in a body-doubling room see
// presence, not what anyone is working on. The zero value is a no-op filter.
type PrivacyFilter struct {
	MaskLabels     bool
	MaskSessionIDs bool
	HiddenRooms    []string
}

// maskedLabel replaces a task label when MaskLabels is set.
const maskedLabel = "Focusing"

// IsAllowed reports whether a session should be broadcast at all. Sessions
// in a hidden room are dropped from broadcast payloads entirely.
func (f *PrivacyFilter) IsAllowed(room string) bool {
	if room == "" {
		return true
	}
	for _, hidden := range f.HiddenRooms {
		if room == hidden {
			return false
		}
	}
	return true
}

// Apply returns a copy of the session with sensitive fields masked according
// to the filter configuration. The original is never modified.
func (f *PrivacyFilter) Apply(s *Session) *Session {
	masked := s.Clone()

	if f.MaskLabels && masked.Label != "" {
		masked.Label = maskedLabel
	}

	if f.MaskSessionIDs && masked.ID != "" {
		masked.ID = shortHash(masked.ID)
	}

	return masked
}

// FilterSlice returns a new slice containing only the allowed sessions,
// with privacy masking applied to each. The original slice is not modified.
func (f *PrivacyFilter) FilterSlice(sessions []*Session) []*Session {
	result := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		if !f.IsAllowed(s.Room) {
			continue
		}
		result = append(result, f.Apply(s))
	}
	return result
}

// IsNoop reports whether the filter does nothing.
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskLabels && !f.MaskSessionIDs && len(f.HiddenRooms) == 0
}

// shortHash returns a truncated SHA-256 hex digest for an opaque identifier.
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
