package ws

import (
	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
)

type MessageType string

const (
	MsgSnapshot            MessageType = "snapshot"
	MsgDelta               MessageType = "delta"
	MsgCompletion          MessageType = "completion"
	MsgCancellation        MessageType = "cancellation"
	MsgAchievementUnlocked MessageType = "achievement_unlocked"
	MsgStreak              MessageType = "streak"
	MsgGarden              MessageType = "garden"
	MsgRoomUpdate          MessageType = "room_update"
	MsgError               MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload carries the full set of known sessions. Sent once on
// connect and periodically as a self-healing baseline.
type SnapshotPayload struct {
	Sessions []*session.Session `json:"sessions"`
}

// DeltaPayload carries only the sessions that changed since the last flush.
type DeltaPayload struct {
	Updates []*session.Session `json:"updates"`
	Removed []string           `json:"removed,omitempty"`
}

// CompletionPayload announces a session that ran down to zero.
type CompletionPayload struct {
	SessionID string `json:"sessionId"`
	Label     string `json:"label,omitempty"`
	PlannedS  int    `json:"plannedSeconds"`
}

// CancellationPayload announces a deliberately ended session, including how
// much time was left on the clock.
type CancellationPayload struct {
	SessionID  string `json:"sessionId"`
	Label      string `json:"label,omitempty"`
	RemainingS int    `json:"remainingSeconds"`
}

type AchievementUnlockedPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	Category    string `json:"category"`
}

type StreakPayload struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

type GardenPayload struct {
	Progress gamification.GardenProgress `json:"progress"`
	Reason   string                      `json:"reason,omitempty"`
}

type RoomUpdatePayload struct {
	Room room.State `json:"room"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
