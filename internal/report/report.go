// Package report renders the weekly focus summary as a PDF.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/history"
)

// Data is everything the weekly report needs, gathered by the caller so this
// package stays free of storage dependencies beyond the row types.
type Data struct {
	WeekStart time.Time
	Entries   []history.Entry
	Days      []history.DayCount
	Streak    gamification.StreakStatus
	Garden    gamification.GardenProgress
}

// WeekStart returns the Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started last Monday
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

// WeeklyPDF writes the rendered report to w.
func WeeklyPDF(w io.Writer, data Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Focus Report: week of %s", data.WeekStart.Format("Jan 2, 2006")))
	pdf.Ln(12)

	writeSummary(pdf, data)
	writeDailyBreakdown(pdf, data.Days)
	writeSessionList(pdf, data.Entries)

	return pdf.Output(w)
}

func writeSummary(pdf *fpdf.Fpdf, data Data) {
	completions, cancelled := 0, 0
	var focusSec int64
	for _, d := range data.Days {
		completions += d.Completions
		cancelled += d.Cancelled
		focusSec += d.FocusSec
	}

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Sessions completed: %d", completions))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Sessions cancelled: %d", cancelled))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Focused time: %s", formatDuration(focusSec)))
	pdf.Ln(6)
	if data.Streak.Current > 0 {
		pdf.Cell(0, 8, fmt.Sprintf("Current streak: %d days (longest %d)", data.Streak.Current, data.Streak.Longest))
		pdf.Ln(6)
	}
	if data.Garden.Stage > 0 {
		pdf.Cell(0, 8, fmt.Sprintf("Garden: stage %d (%s), %d XP", data.Garden.Stage, data.Garden.StageName, data.Garden.XP))
		pdf.Ln(6)
	}
	pdf.Ln(6)
}

func writeDailyBreakdown(pdf *fpdf.Fpdf, days []history.DayCount) {
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Daily Breakdown")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	if len(days) == 0 {
		pdf.Cell(0, 8, "  No sessions this week.")
		pdf.Ln(8)
		return
	}

	for _, d := range days {
		line := fmt.Sprintf("  %s: %d completed, %s focused", d.Day, d.Completions, formatDuration(d.FocusSec))
		if d.Cancelled > 0 {
			line += fmt.Sprintf(", %d cancelled", d.Cancelled)
		}
		pdf.Cell(0, 8, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)
}

func writeSessionList(pdf *fpdf.Fpdf, entries []history.Entry) {
	if len(entries) == 0 {
		return
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Sessions")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	for _, e := range entries {
		mark := "[x]"
		if e.Outcome != "completed" {
			mark = "[ ]"
		}
		label := e.Label
		if label == "" {
			label = "(unlabeled)"
		}
		line := fmt.Sprintf("  %s %s - %s", mark, label, formatDuration(int64(e.PlannedSeconds)))
		if e.Room != "" {
			line += " in " + e.Room
		}
		if e.EndedAt != nil {
			line += e.EndedAt.UTC().Format(" (Mon 15:04)")
		}
		pdf.Cell(0, 7, line)
		pdf.Ln(6)
	}
}

func formatDuration(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
