// Package status renders the top status bar: connection state, session
// counts and the current streak.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasksnap/focusd/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Running   int
	Paused    int
	Streak    int
	Width     int

	// Notice is a transient announcement (achievement, streak) shown until
	// the next one replaces it.
	Notice string
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	counts := fmt.Sprintf("%d running  %d paused", m.Running, m.Paused)

	streakStr := ""
	if m.Streak > 0 {
		streakStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).
			Render(fmt.Sprintf("streak %d", m.Streak))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts
	if streakStr != "" {
		content += sep + streakStr
	}
	if m.Notice != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorGold).Render(m.Notice)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
