// Package timer renders the active focus sessions with countdown bars and
// the duration picker used to start a new session.
package timer

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/tasksnap/focusd/internal/session"
	"github.com/tasksnap/focusd/internal/tui/theme"
)

const barWidth = 28

// Model holds the timer view state.
type Model struct {
	Width int

	sessions []*session.Session
	selected int

	presets   []int
	pickerIdx int

	bar progress.Model
}

// New creates a timer view offering the given preset durations in minutes.
func New(presets []int) Model {
	if len(presets) == 0 {
		presets = []int{25}
	}
	return Model{
		presets: presets,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// SetSessions replaces the session list. Running sessions sort first, then
// paused, then terminal; ties break on start time so rows do not jump.
func (m *Model) SetSessions(sessions map[string]*session.Session) {
	m.sessions = make([]*session.Session, 0, len(sessions))
	for _, s := range sessions {
		m.sessions = append(m.sessions, s)
	}
	sort.Slice(m.sessions, func(i, j int) bool {
		si, sj := m.sessions[i], m.sessions[j]
		oi, oj := stateOrder(si.State), stateOrder(sj.State)
		if oi != oj {
			return oi < oj
		}
		return si.StartedAt.Before(sj.StartedAt)
	})
	if m.selected >= len(m.sessions) {
		m.selected = 0
	}
}

// Select moves the selection cursor by delta, wrapping around.
func (m *Model) Select(delta int) {
	if len(m.sessions) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.sessions)) % len(m.sessions)
}

// Selected returns the session under the cursor, nil when the list is empty.
func (m *Model) Selected() *session.Session {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return nil
	}
	return m.sessions[m.selected]
}

// CyclePreset moves the duration picker by delta, wrapping around.
func (m *Model) CyclePreset(delta int) {
	m.pickerIdx = (m.pickerIdx + delta + len(m.presets)) % len(m.presets)
}

// PresetMinutes returns the currently picked duration.
func (m *Model) PresetMinutes() int {
	return m.presets[m.pickerIdx]
}

// View renders the session list and the duration picker.
func (m Model) View() string {
	lines := []string{theme.StyleHeader.Render("  Focus Sessions")}

	if len(m.sessions) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  Nothing running. Press enter to start a session."))
	}

	for i, s := range m.sessions {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}
		lines = append(lines, prefix+m.renderSession(s))
	}

	lines = append(lines, "", m.renderPicker())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderSession(s *session.Session) string {
	state := s.State.String()
	glyph := lipgloss.NewStyle().Foreground(theme.StateColor(state)).Render(theme.StateGlyph(state))

	label := s.Label
	if label == "" {
		label = "Focus"
	}
	if len(label) > 20 {
		label = label[:19] + "…"
	}
	labelStr := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(21).Render(label)

	fraction := s.RemainingFraction()
	clockSeconds := s.RemainingSeconds
	if s.IsTerminal() {
		// Finished rows show the time focused, not a dead countdown.
		clockSeconds = int(s.Elapsed().Seconds())
	}
	clock := lipgloss.NewStyle().Foreground(theme.RemainingColor(fraction)).
		Render(formatClock(clockSeconds))

	bar := m.bar.ViewAs(1 - fraction)

	line := glyph + " " + labelStr + " " + bar + " " + clock
	if s.Room != "" {
		line += theme.StyleDimmed.Render("  @" + s.Room)
	}
	if s.State == session.Paused {
		line += lipgloss.NewStyle().Foreground(theme.ColorPaused).Render("  paused")
	}
	return line
}

func (m Model) renderPicker() string {
	parts := make([]string, 0, len(m.presets))
	for i, p := range m.presets {
		label := fmt.Sprintf("%dm", p)
		if i == m.pickerIdx {
			parts = append(parts, theme.StyleSelected.Render("["+label+"]"))
		} else {
			parts = append(parts, theme.StyleDimmed.Render(" "+label+" "))
		}
	}
	row := "  Start: "
	for _, p := range parts {
		row += p + " "
	}
	return row + theme.StyleDimmed.Render(" (h/l to pick, enter to start)")
}

// formatClock renders seconds as m:ss, or h:mm:ss past the hour.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	mm := (seconds % 3600) / 60
	ss := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
	}
	return fmt.Sprintf("%2d:%02d", mm, ss)
}

func stateOrder(s session.State) int {
	switch s {
	case session.Running:
		return 0
	case session.Paused:
		return 1
	case session.Completed:
		return 2
	default:
		return 3
	}
}
