// Package garden renders the gamification overlay: plant progress, streak,
// weekly challenges and the achievement list.
package garden

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/tui/theme"
)

var stageArt = map[int]string{
	0: "(seed) .",
	1: "(sprout) ,",
	2: "(sapling) Y",
	3: "(bloom) *Y*",
	4: "(grove) YYY",
}

// Model holds the overlay state, populated lazily from the REST API and
// kept fresh by WebSocket pushes.
type Model struct {
	Width int

	Stats        *gamification.Stats
	Garden       gamification.GardenProgress
	Streak       gamification.StreakStatus
	Challenges   []gamification.ChallengeProgress
	Achievements []gamification.UnlockedAchievement

	LastXPReason string
}

func New() Model {
	return Model{}
}

// View renders the full overlay panel.
func (m Model) View() string {
	width := m.Width
	if width < 48 {
		width = 48
	}

	sections := []string{
		m.renderGarden(),
		m.renderStreak(),
		m.renderChallenges(),
		m.renderAchievements(),
	}

	return theme.StyleBorder.
		Width(width - 4).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderGarden() string {
	color := theme.StageColor(m.Garden.Stage)
	art := stageArt[m.Garden.Stage]
	if art == "" {
		art = stageArt[4]
	}

	header := theme.StyleHeader.Render("Garden")
	plant := lipgloss.NewStyle().Foreground(color).Render(
		fmt.Sprintf("%s  stage %d: %s", art, m.Garden.Stage, m.Garden.StageName))

	barWidth := 24
	filled := int(m.Garden.Pct * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", barWidth-filled))
	xpLine := fmt.Sprintf("%s %s", bar,
		theme.StyleDimmed.Render(fmt.Sprintf("%d XP", m.Garden.XP)))

	lines := []string{header, plant, xpLine}
	if m.LastXPReason != "" {
		lines = append(lines, theme.StyleDimmed.Render("recent: "+m.LastXPReason))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderStreak() string {
	flame := "–"
	color := theme.ColorDimmed
	if m.Streak.Current > 0 {
		flame = fmt.Sprintf("%d day", m.Streak.Current)
		if m.Streak.Current > 1 {
			flame += "s"
		}
		color = theme.ColorWarning
	}
	cur := lipgloss.NewStyle().Foreground(color).Render(flame)
	return fmt.Sprintf("%s %s %s", theme.StyleHeader.Render("Streak"), cur,
		theme.StyleDimmed.Render(fmt.Sprintf("(best %d)", m.Streak.Longest)))
}

func (m Model) renderChallenges() string {
	lines := []string{theme.StyleHeader.Render("Weekly Challenges")}
	if len(m.Challenges) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("loading..."))
	}
	for _, c := range m.Challenges {
		mark := theme.StyleDimmed.Render("[ ]")
		if c.Complete {
			mark = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("[✓]")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", mark, c.Description,
			theme.StyleDimmed.Render(fmt.Sprintf("%d/%d", c.Current, c.Target))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderAchievements() string {
	unlocked := 0
	for _, a := range m.Achievements {
		if a.UnlockedAt != nil {
			unlocked++
		}
	}

	lines := []string{theme.StyleHeader.Render(
		fmt.Sprintf("Achievements %d/%d", unlocked, len(m.Achievements)))}

	for _, a := range m.Achievements {
		if a.UnlockedAt == nil {
			continue
		}
		tier := lipgloss.NewStyle().Foreground(theme.TierColor(string(a.Tier))).
			Render("◆ " + a.Name)
		lines = append(lines, fmt.Sprintf("%s %s", tier,
			theme.StyleDimmed.Render(a.Description)))
	}
	if unlocked == 0 {
		lines = append(lines, theme.StyleDimmed.Render("none yet, keep focusing"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
