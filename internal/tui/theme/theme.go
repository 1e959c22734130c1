// Package theme provides the Lip Gloss color palette and reusable styles
// for the focusd TUI. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Session state colors.
var (
	ColorRunning   = lipgloss.Color("#22c55e")
	ColorPaused    = lipgloss.Color("#d97706")
	ColorCompleted = lipgloss.Color("#3b82f6")
	ColorCancelled = lipgloss.Color("#dc2626")
	ColorIdle      = lipgloss.Color("#4b5563")
	ColorDefault   = lipgloss.Color("#9ca3af")
)

// Garden stage colors, dirt through full bloom.
var (
	ColorSeed    = lipgloss.Color("#854d0e")
	ColorSprout  = lipgloss.Color("#65a30d")
	ColorSapling = lipgloss.Color("#16a34a")
	ColorBloom   = lipgloss.Color("#ec4899")
	ColorGrove   = lipgloss.Color("#a855f7")
)

// Achievement tier colors.
var (
	ColorBronze   = lipgloss.Color("#d97706")
	ColorSilver   = lipgloss.Color("#9ca3af")
	ColorGold     = lipgloss.Color("#f59e0b")
	ColorPlatinum = lipgloss.Color("#67e8f9")
)

// Countdown urgency thresholds.
var (
	ColorTimeAmple = lipgloss.Color("#22c55e") // >half remaining
	ColorTimeMid   = lipgloss.Color("#d97706")
	ColorTimeLow   = lipgloss.Color("#dc2626") // final stretch
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StateColor returns the color for a session state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "running":
		return ColorRunning
	case "paused":
		return ColorPaused
	case "completed":
		return ColorCompleted
	case "cancelled":
		return ColorCancelled
	case "idle":
		return ColorIdle
	default:
		return ColorDefault
	}
}

// StateGlyph returns a Unicode glyph for a session state name.
func StateGlyph(state string) string {
	switch state {
	case "running":
		return "▶"
	case "paused":
		return "⏸"
	case "completed":
		return "✓"
	case "cancelled":
		return "✗"
	case "idle":
		return "○"
	default:
		return "·"
	}
}

// StageColor returns the color for a garden stage index.
func StageColor(stage int) lipgloss.Color {
	switch {
	case stage >= 4:
		return ColorGrove
	case stage == 3:
		return ColorBloom
	case stage == 2:
		return ColorSapling
	case stage == 1:
		return ColorSprout
	default:
		return ColorSeed
	}
}

// TierColor returns the color for an achievement tier name.
func TierColor(tier string) lipgloss.Color {
	switch tier {
	case "bronze":
		return ColorBronze
	case "silver":
		return ColorSilver
	case "gold":
		return ColorGold
	case "platinum":
		return ColorPlatinum
	default:
		return ColorDefault
	}
}

// RemainingColor returns the countdown color for a remaining fraction.
func RemainingColor(fraction float64) lipgloss.Color {
	switch {
	case fraction < 0.1:
		return ColorTimeLow
	case fraction < 0.5:
		return ColorTimeMid
	default:
		return ColorTimeAmple
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
