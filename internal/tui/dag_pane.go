package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkallberg/actsched/internal/events"
)

// dagCounts is the latest DAGProgressEvent snapshot the pane is rendering.
type dagCounts struct {
	total, completed, running, failed, disabled, pending int
}

// DAGPaneModel renders a live summary of a pass's progress: a count per
// outcome bucket and a stacked bar built from the same buckets.
type DAGPaneModel struct {
	counts  dagCounts
	width   int
	height  int
	focused bool
}

// NewDAGPaneModel creates an empty DAG pane; it renders nothing until it
// is given a size, and shows all-zero counts until the first
// DAGProgressEvent arrives.
func NewDAGPaneModel() DAGPaneModel {
	return DAGPaneModel{}
}

// Update applies window resizes and DAGProgressEvents to the pane.
func (m DAGPaneModel) Update(msg tea.Msg) (DAGPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.DAGProgressEvent:
		m.counts = dagCounts{
			total:     msg.Total,
			completed: msg.Completed,
			running:   msg.Running,
			failed:    msg.Failed,
			disabled:  msg.Disabled,
			pending:   msg.Pending,
		}
	}

	return m, nil
}

// bucket describes one row of the progress breakdown: a label, a style to
// render its count and bar segment in, a fill rune for the bar, and the
// count itself.
type bucket struct {
	label string
	style lipgloss.Style
	rune  string
	n     int
}

func (m DAGPaneModel) buckets() []bucket {
	return []bucket{
		{"Completed", StyleStatusComplete, "=", m.counts.completed},
		{"Running", StyleStatusRunning, "-", m.counts.running},
		{"Failed", StyleStatusFailed, "!", m.counts.failed},
		{"Disabled", StyleStatusDisabled, "x", m.counts.disabled},
		{"Pending", StyleStatusPending, ".", m.counts.pending},
	}
}

// View renders the pane: a title, one line per bucket, and a proportional
// stacked bar built from the same buckets in the same order.
func (m DAGPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Pass progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Total:     %d\n", m.counts.total))
	for _, bk := range m.buckets() {
		b.WriteString(fmt.Sprintf("%-10s %s\n", bk.label+":", bk.style.Render(fmt.Sprintf("%d", bk.n))))
	}
	b.WriteString("\n")

	if m.counts.total > 0 {
		barWidth := min(m.width-4, 40)
		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", m.renderBar(barWidth), m.counts.completed, m.counts.total))
	}

	content := b.String()

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderBar distributes width proportionally across the buckets in order,
// handing any rounding remainder to the last (pending) segment so the bar
// always sums to exactly width.
func (m DAGPaneModel) renderBar(width int) string {
	if m.counts.total == 0 || width <= 0 {
		return strings.Repeat(" ", max(0, width))
	}

	var b strings.Builder
	used := 0
	bks := m.buckets()
	for i, bk := range bks {
		var w int
		if i == len(bks)-1 {
			w = width - used
		} else {
			w = (bk.n * width) / m.counts.total
		}
		if w < 0 {
			w = 0
		}
		b.WriteString(bk.style.Render(strings.Repeat(bk.rune, w)))
		used += w
	}
	return b.String()
}

// SetSize updates the pane's rendering dimensions.
func (m *DAGPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the pane's focus state.
func (m *DAGPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
