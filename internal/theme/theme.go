// Package theme holds the lipgloss styles used for CLI output.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskpilot/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section headers.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps multi-line output such as task details and AI answers.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle highlights failures and overdue markers.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// StatusStyle returns a color-coded style for a task status.
func StatusStyle(status model.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case model.StatusTodo:
		return base.Foreground(ColorBlue)
	case model.StatusInProgress:
		return base.Foreground(ColorYellow)
	case model.StatusCompleted:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a task priority.
func PriorityStyle(priority model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorOrange)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// CategoryStyle returns a color-coded label style for a recommendation category.
func CategoryStyle(c model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch c {
	case model.CategoryPrioritization:
		return base.Foreground(ColorRed)
	case model.CategoryScheduling:
		return base.Foreground(ColorBlue)
	case model.CategoryPattern:
		return base.Foreground(ColorMagenta)
	case model.CategoryDecomposition:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// ScoreStyle colors a productivity score by the same tiers used for slot suggestions.
func ScoreStyle(score float64) lipgloss.Style {
	base := lipgloss.NewStyle()

	switch {
	case score > 8:
		return base.Foreground(ColorGreen)
	case score > 5:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}
