package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Pane chrome: the focused pane gets the accent border, everything else
// fades to the dim one so the operator's eye lands on the right place.
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Task lifecycle colors. Disabled gets its own dim-magenta rather than
// reusing the failed style: spec.md treats Disable/DisableOnce as a
// distinct outcome from Failure, and a task can be disabled without ever
// having failed itself (a cascade from a failed predecessor).
var (
	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusComplete = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	StyleStatusFailed = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusDisabled = lipgloss.NewStyle().
				Foreground(lipgloss.Color("141"))

	StyleStatusPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// statusGlyph pairs a lifecycle status with the icon and style used to
// render it, so the task list draws its status icons from one table
// instead of hand-rolling a switch. The DAG pane's progress bar uses the
// StyleStatus* styles above directly.
var statusGlyph = map[string]struct {
	icon  string
	style lipgloss.Style
}{
	"pending":   {"○", StyleStatusPending},
	"running":   {"●", StyleStatusRunning},
	"completed": {"✓", StyleStatusComplete},
	"failed":    {"✗", StyleStatusFailed},
	"disabled":  {"⊘", StyleStatusDisabled},
}

// IconFor renders status's glyph in its matching style. Unknown statuses
// fall back to the pending glyph.
func IconFor(status string) string {
	g, ok := statusGlyph[status]
	if !ok {
		g = statusGlyph["pending"]
	}
	return g.style.Render(g.icon)
}

// StyleFor returns the lipgloss style associated with status, falling
// back to StyleStatusPending for anything unrecognised.
func StyleFor(status string) lipgloss.Style {
	g, ok := statusGlyph[status]
	if !ok {
		return StyleStatusPending
	}
	return g.style
}
