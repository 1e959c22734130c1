// Package app wires the focusd TUI together: one root Bubble Tea model
// owning the WebSocket feed, the session list and the overlays.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
	"github.com/tasksnap/focusd/internal/tui/client"
	"github.com/tasksnap/focusd/internal/tui/theme"
	"github.com/tasksnap/focusd/internal/tui/views/garden"
	"github.com/tasksnap/focusd/internal/tui/views/rooms"
	"github.com/tasksnap/focusd/internal/tui/views/status"
	"github.com/tasksnap/focusd/internal/tui/views/timer"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayGarden
	OverlayRooms
)

// --- API result messages ---

type gardenDataMsg struct {
	stats        *gamification.Stats
	achievements []gamification.UnlockedAchievement
	challenges   []gamification.ChallengeProgress
	err          error
}

type roomsDataMsg struct {
	rooms []room.State
	err   error
}

type roomJoinedMsg struct {
	roomID string
	left   bool
	err    error
}

type apiErrMsg struct{ err error }

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	sessions map[string]*session.Session

	overlay Overlay

	statusBar status.Model
	timer     timer.Model
	garden    garden.Model
	rooms     rooms.Model

	participantID string
	connected     bool
	lastErr       string
}

// New creates the root model.
func New(ws *client.WSClient, http *client.HTTPClient, presets []int) Model {
	ctx, cancel := context.WithCancel(context.Background())
	name := os.Getenv("USER")
	if name == "" {
		name = "you"
	}
	return Model{
		ws:            ws,
		http:          http,
		ctx:           ctx,
		cancel:        cancel,
		keys:          DefaultKeyMap(),
		sessions:      make(map[string]*session.Session),
		statusBar:     status.New(),
		timer:         timer.New(presets),
		garden:        garden.New(),
		rooms:         rooms.New(),
		participantID: "tui-" + name,
	}
}

// Init starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return m.ws.Listen(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.timer.Width = msg.Width
		m.garden.Width = msg.Width
		m.rooms.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.sessions = make(map[string]*session.Session)
		for _, s := range msg.Payload.Sessions {
			m.sessions[s.ID] = s
		}
		m.refreshSessions()
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDeltaMsg:
		for _, s := range msg.Payload.Updates {
			m.sessions[s.ID] = s
		}
		for _, id := range msg.Payload.Removed {
			delete(m.sessions, id)
		}
		m.refreshSessions()
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSCompletionMsg:
		label := msg.Payload.Label
		if label == "" {
			label = "Session"
		}
		m.statusBar.Notice = label + " complete!"
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSCancellationMsg:
		m.statusBar.Notice = fmt.Sprintf("Cancelled with %s left",
			formatShort(msg.Payload.RemainingS))
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSAchievementMsg:
		m.statusBar.Notice = "Achievement: " + msg.Payload.Name
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSStreakMsg:
		m.statusBar.Streak = msg.Payload.Current
		m.garden.Streak.Current = msg.Payload.Current
		m.garden.Streak.Longest = msg.Payload.Longest
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSGardenMsg:
		m.garden.Garden = msg.Payload.Progress
		m.garden.LastXPReason = msg.Payload.Reason
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSRoomUpdateMsg:
		m.rooms.Apply(msg.Payload.Room)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSErrorMsg:
		return m, m.ws.ReadLoop(m.ctx)

	case gardenDataMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.garden.Stats = msg.stats
		m.garden.Achievements = msg.achievements
		m.garden.Challenges = msg.challenges
		if msg.stats != nil {
			m.statusBar.Streak = msg.stats.CurrentStreak
			m.garden.Streak = gamification.StreakStatus{
				Current: msg.stats.CurrentStreak,
				Longest: msg.stats.LongestStreak,
			}
			m.garden.Garden = gamification.GardenProgress{
				Stage: msg.stats.Garden.Stage,
				XP:    msg.stats.Garden.XP,
			}
		}
		return m, nil

	case roomsDataMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.rooms.SetRooms(msg.rooms)
		return m, nil

	case roomJoinedMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		if msg.left {
			m.rooms.Joined = ""
		} else {
			m.rooms.Joined = msg.roomID
		}
		return m, m.fetchRooms()

	case apiErrMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.timer.Select(1)

	case key.Matches(msg, m.keys.Up):
		m.timer.Select(-1)

	case key.Matches(msg, m.keys.Right):
		m.timer.CyclePreset(1)

	case key.Matches(msg, m.keys.Left):
		m.timer.CyclePreset(-1)

	case key.Matches(msg, m.keys.Enter):
		m.lastErr = ""
		return m, m.startSession(m.timer.PresetMinutes(), m.rooms.Joined)

	case key.Matches(msg, m.keys.Pause):
		if s := m.timer.Selected(); s != nil {
			m.lastErr = ""
			return m, m.togglePause(s)
		}

	case key.Matches(msg, m.keys.Cancel):
		if s := m.timer.Selected(); s != nil && !s.IsTerminal() {
			m.lastErr = ""
			return m, m.cancelSession(s.ID)
		}

	case key.Matches(msg, m.keys.Garden):
		m.overlay = OverlayGarden
		return m, m.fetchGarden()

	case key.Matches(msg, m.keys.Rooms):
		m.overlay = OverlayRooms
		return m, m.fetchRooms()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchGarden()
	}

	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.overlay = OverlayNone
		return m, nil
	}

	if m.overlay != OverlayRooms {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.rooms.Select(1)

	case key.Matches(msg, m.keys.Up):
		m.rooms.Select(-1)

	case key.Matches(msg, m.keys.Enter):
		r := m.rooms.Selected()
		if r == nil {
			return m, nil
		}
		m.lastErr = ""
		if m.rooms.Joined == r.ID {
			return m, m.leaveRoom(r.ID)
		}
		return m, m.joinRoom(r.ID)
	}

	return m, nil
}

// --- HTTP commands ---

func (m Model) startSession(minutes int, roomID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.http.StartSession(minutes, "", roomID)
		return apiErrMsg{err: err}
	}
}

func (m Model) togglePause(s *session.Session) tea.Cmd {
	id := s.ID
	paused := s.State == session.Paused
	return func() tea.Msg {
		if paused {
			return apiErrMsg{err: m.http.ResumeSession(id)}
		}
		return apiErrMsg{err: m.http.PauseSession(id)}
	}
}

func (m Model) cancelSession(id string) tea.Cmd {
	return func() tea.Msg {
		return apiErrMsg{err: m.http.CancelSession(id)}
	}
}

func (m Model) fetchGarden() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.http.GetStats()
		if err != nil {
			return gardenDataMsg{err: err}
		}
		achievements, err := m.http.GetAchievements()
		if err != nil {
			return gardenDataMsg{err: err}
		}
		challenges, err := m.http.GetChallenges()
		if err != nil {
			return gardenDataMsg{err: err}
		}
		return gardenDataMsg{stats: stats, achievements: achievements, challenges: challenges}
	}
}

func (m Model) fetchRooms() tea.Cmd {
	return func() tea.Msg {
		states, err := m.http.GetRooms()
		return roomsDataMsg{rooms: states, err: err}
	}
}

func (m Model) joinRoom(roomID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.http.JoinRoom(roomID, m.participantID, displayName())
		return roomJoinedMsg{roomID: roomID, err: err}
	}
}

func (m Model) leaveRoom(roomID string) tea.Cmd {
	return func() tea.Msg {
		err := m.http.LeaveRoom(roomID, m.participantID)
		return roomJoinedMsg{roomID: roomID, left: true, err: err}
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.statusBar.View()}

	switch m.overlay {
	case OverlayGarden:
		sections = append(sections, m.garden.View())
	case OverlayRooms:
		sections = append(sections, m.rooms.View())
	default:
		sections = append(sections, m.timer.View())
	}

	if m.lastErr != "" {
		sections = append(sections,
			lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("  "+m.lastErr))
	}

	sections = append(sections, theme.StyleDimmed.Render(
		"  j/k:select  h/l:duration  enter:start  space:pause  c:cancel  g:garden  r:rooms  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// refreshSessions pushes the session map into the views that render it.
func (m *Model) refreshSessions() {
	m.timer.SetSessions(m.sessions)

	running, paused := 0, 0
	for _, s := range m.sessions {
		switch s.State {
		case session.Running:
			running++
		case session.Paused:
			paused++
		}
	}
	m.statusBar.Running = running
	m.statusBar.Paused = paused
}

func displayName() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "You"
}

// formatShort renders a second count as "13m" or "45s".
func formatShort(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%ds", seconds)
}
