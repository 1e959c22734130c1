// Package rooms renders the body-doubling room list and tracks which room
// the local user has joined.
package rooms

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/tui/theme"
)

// Model holds the room overlay state.
type Model struct {
	Width int

	rooms    []room.State
	selected int

	// Joined is the room ID the local user is currently in, empty if none.
	Joined string
}

func New() Model {
	return Model{}
}

// SetRooms replaces the room list, preserving server ordering.
func (m *Model) SetRooms(states []room.State) {
	m.rooms = states
	if m.selected >= len(m.rooms) {
		m.selected = 0
	}
}

// Apply merges a single room update pushed over the WebSocket.
func (m *Model) Apply(state room.State) {
	for i, r := range m.rooms {
		if r.ID == state.ID {
			m.rooms[i] = state
			return
		}
	}
	m.rooms = append(m.rooms, state)
}

// Select moves the cursor by delta, wrapping around.
func (m *Model) Select(delta int) {
	if len(m.rooms) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.rooms)) % len(m.rooms)
}

// Selected returns the room under the cursor, nil when the list is empty.
func (m *Model) Selected() *room.State {
	if m.selected < 0 || m.selected >= len(m.rooms) {
		return nil
	}
	return &m.rooms[m.selected]
}

// View renders the room list with occupancy and member focus states.
func (m Model) View() string {
	width := m.Width
	if width < 48 {
		width = 48
	}

	lines := []string{theme.StyleHeader.Render("Rooms")}
	if len(m.rooms) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("no rooms configured"))
	}

	for i, r := range m.rooms {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}

		occ := fmt.Sprintf("%d/%d", len(r.Participants), r.Capacity)
		occColor := theme.ColorHealthy
		if len(r.Participants) >= r.Capacity {
			occColor = theme.ColorDanger
		}

		name := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(18).Render(r.Name)
		line := prefix + name + " " +
			lipgloss.NewStyle().Foreground(occColor).Render(occ)
		if r.ID == m.Joined {
			line += lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("  (you are here)")
		}
		lines = append(lines, line, m.renderMembers(r))
	}

	lines = append(lines, "",
		theme.StyleDimmed.Render("enter: join/leave  esc: close"))

	return theme.StyleBorder.
		Width(width - 4).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderMembers(r room.State) string {
	if len(r.Participants) == 0 {
		return theme.StyleDimmed.Render("    empty")
	}

	members := append([]room.Participant(nil), r.Participants...)
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	out := "    "
	for _, p := range members {
		glyph := "○"
		color := theme.ColorDimmed
		if p.Focusing {
			glyph = "●"
			color = theme.ColorHealthy
		}
		out += lipgloss.NewStyle().Foreground(color).Render(glyph+" "+p.Name) + "  "
	}
	return out
}
