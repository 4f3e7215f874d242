// Package ui renders entities for terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tandemhq/tandem/internal/schema"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Header renders a bold section heading.
func Header(s string) string { return headerStyle.Render(s) }

// Success renders a confirmation line.
func Success(s string) string { return successStyle.Render(s) }

// Warn renders a warning line.
func Warn(s string) string { return warnStyle.Render(s) }

// Error renders a failure line.
func Error(s string) string { return errorStyle.Render(s) }

// Dim renders secondary detail.
func Dim(s string) string { return dimStyle.Render(s) }

func statusGlyph(s schema.TaskStatus) string {
	switch s {
	case schema.TaskCompleted:
		return successStyle.Render("[x]")
	case schema.TaskTried:
		return warnStyle.Render("[~]")
	case schema.TaskSkipped:
		return dimStyle.Render("[-]")
	case schema.TaskDeclined:
		return errorStyle.Render("[!]")
	case schema.TaskPendingAcceptance:
		return warnStyle.Render("[?]")
	default:
		return "[ ]"
	}
}

// TaskLine renders one task as a single list line.
func TaskLine(t *schema.Task) string {
	var b strings.Builder
	b.WriteString(statusGlyph(t.Status))
	b.WriteString(" ")
	b.WriteString(t.Title)

	if t.RepeatTarget != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d/%d)", t.RepeatCompleted, *t.RepeatTarget)))
	}
	if t.ScheduledDate != "" {
		b.WriteString(dimStyle.Render(" @" + t.ScheduledDate))
	}
	if t.Deadline != "" {
		b.WriteString(warnStyle.Render(" due " + t.Deadline))
	}
	for _, label := range t.Labels {
		b.WriteString(dimStyle.Render(" #" + label))
	}
	return b.String()
}

// ProgressBar renders current progress against a target as a fixed-width
// bar, e.g. "[####------] 4/10".
func ProgressBar(current, target int) string {
	const width = 10
	if target < 1 {
		target = 1
	}
	filled := current * width / target
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	text := fmt.Sprintf("[%s] %d/%d", bar, current, target)
	if current >= target {
		return successStyle.Render(text)
	}
	return text
}

// GoalLine renders one goal with its progress.
func GoalLine(g *schema.Goal) string {
	var b strings.Builder
	if g.Icon != "" {
		b.WriteString(g.Icon)
		b.WriteString(" ")
	}
	b.WriteString(g.Name)
	b.WriteString(" ")
	b.WriteString(ProgressBar(g.CurrentProgress, g.Type.TargetValue()))
	if g.Status != schema.GoalActive {
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(string(g.Status)))
	}
	return b.String()
}

// WeekHeader renders a week banner with its date range.
func WeekHeader(w *schema.Week) string {
	const layout = "Jan 2"
	line := fmt.Sprintf("%s  %s - %s", w.ID,
		w.StartDate.Format(layout), w.EndDate.Format(layout))
	if w.PlanningCompletedAt != nil {
		line += "  " + successStyle.Render("planned")
	}
	if w.ReviewedAt != nil && w.OverallRating != nil {
		line += "  " + dimStyle.Render(fmt.Sprintf("reviewed %d/5", *w.OverallRating))
	}
	return headerStyle.Render(line)
}
