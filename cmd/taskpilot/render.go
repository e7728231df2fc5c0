package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/theme"
)

const displayTime = "Mon Jan 2 15:04"

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func header(s string) string {
	return theme.HeaderStyle.Render(s)
}

func helpLine(s string) string {
	return theme.HelpStyle.Render(s)
}

// formatMinutes renders a minute count as "45m" or "2h 05m".
func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// deadlineLabel renders the deadline in local time, marking overdue tasks.
func deadlineLabel(t model.Task, now time.Time) string {
	if t.Deadline == nil {
		return "-"
	}
	label := t.Deadline.Local().Format(displayTime)
	if t.IsOverdue(now) {
		return theme.ErrorStyle.Render(label + " overdue")
	}
	return label
}

func renderTaskTable(w io.Writer, list []model.Task, active map[string]bool, now time.Time) {
	idCol := lipgloss.NewStyle().Width(10)
	for _, t := range list {
		title := t.Title
		if active[t.ID] {
			title += " " + theme.StatusStyle(model.StatusInProgress).Render("(timer)")
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			idCol.Render(shortID(t.ID)),
			theme.StatusStyle(t.Status).Width(13).Render(string(t.Status)),
			theme.PriorityStyle(t.Priority).Width(8).Render(string(t.Priority)),
			lipgloss.NewStyle().Width(28).Render(deadlineLabel(t, now)),
			title,
		))
	}
}

func renderTaskDetail(t model.Task, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", lipgloss.NewStyle().Bold(true).Render(t.Title))
	fmt.Fprintf(&b, "ID:        %s\n", t.ID)
	fmt.Fprintf(&b, "Status:    %s\n", theme.StatusStyle(t.Status).Render(string(t.Status)))
	fmt.Fprintf(&b, "Priority:  %s\n", theme.PriorityStyle(t.Priority).Render(string(t.Priority)))
	fmt.Fprintf(&b, "Deadline:  %s\n", deadlineLabel(t, now))
	if t.StartTime != nil && t.Duration != nil {
		fmt.Fprintf(&b, "Planned:   %s for %s\n", t.StartTime.Local().Format(displayTime), formatMinutes(*t.Duration))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:      %s\n", strings.Join(t.Tags, ", "))
	}
	if t.CalendarEventID != "" {
		fmt.Fprintf(&b, "Calendar:  %s\n", t.CalendarEventID)
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}

	if tt := t.TimeTracking; tt != nil && len(tt.Sessions) > 0 {
		fmt.Fprintf(&b, "\nTime tracked: %s over %d session(s)", formatMinutes(tt.TotalMinutes), len(tt.Sessions))
		if tt.OpenSession() != nil {
			b.WriteString(", timer running")
		}
		b.WriteString("\n")
	}

	if len(t.Comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "  %s  %s: %s\n", c.CreatedAt.Local().Format(displayTime), c.AuthorName, c.Text)
		}
	}

	return theme.PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderRecommendation(n int, r model.Recommendation) string {
	mark := " "
	if r.Applied {
		mark = "✓"
	}
	label := ""
	if r.Action != nil {
		label = helpLine(" [" + r.ActionLabel + "]")
	}
	return fmt.Sprintf("%s %2d. %s %s%s", mark, n,
		theme.CategoryStyle(r.Category).Render(string(r.Category)), r.Message, label)
}

func renderSlots(w io.Writer, slots []model.TimeSlot) {
	for _, s := range slots {
		fmt.Fprintf(w, "  %s-%s  %s  %s\n",
			s.Start.Format("15:04"), s.End.Format("15:04"),
			theme.ScoreStyle(s.Score).Render(fmt.Sprintf("%4.1f", s.Score)),
			s.Suggestion)
	}
}
