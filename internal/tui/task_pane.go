package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkallberg/actsched/internal/events"
)

// TaskState tracks one task's lifecycle as observed through the scheduler's
// event bus, keyed by action name.
type TaskState struct {
	Name     string
	Status   string // "pending", "running", "completed", "failed", "disabled"
	Log      []string
	Duration string
}

// TaskPaneModel lists every task the current pass has touched, with a
// scrollable log of the lines each one produced.
type TaskPaneModel struct {
	tasks       map[string]*TaskState
	order       []string
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates an empty task pane.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: viewport.New(0, 0),
	}
}

func (m *TaskPaneModel) stateFor(name string) *TaskState {
	st, ok := m.tasks[name]
	if !ok {
		st = &TaskState{Name: name, Status: "pending"}
		m.tasks[name] = st
		m.order = append(m.order, name)
		if len(m.order) == 1 {
			m.selectedIdx = 0
		}
	}
	return st
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case events.TaskStartedEvent:
		st := m.stateFor(msg.Name)
		st.Status = "running"
		st.Log = append(st.Log, "started")
		m.refreshSelected(msg.Name)

	case events.TaskCompletedEvent:
		st := m.stateFor(msg.Name)
		st.Status = "completed"
		st.Duration = msg.Duration.String()
		st.Log = append(st.Log, fmt.Sprintf("completed in %s", st.Duration))
		m.refreshSelected(msg.Name)

	case events.TaskFailedEvent:
		st := m.stateFor(msg.Name)
		st.Status = "failed"
		st.Log = append(st.Log, fmt.Sprintf("failed: %v", msg.Err))
		m.refreshSelected(msg.Name)

	case events.TaskDisabledEvent:
		st := m.stateFor(msg.Name)
		st.Status = "disabled"
		if msg.Cascaded {
			st.Log = append(st.Log, "disabled (dependency failed)")
		} else {
			st.Log = append(st.Log, "disabled")
		}
		m.refreshSelected(msg.Name)
	}

	return m, nil
}

func (m *TaskPaneModel) refreshSelected(name string) {
	if m.selectedTaskName() == name {
		m.updateViewportContent()
	}
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 25
	viewportWidth := m.width - listWidth - 4

	listContent := m.renderTaskList(listWidth)
	viewportContent := m.viewport.View()

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listContent,
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(viewportContent),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, name := range m.order {
			st := m.tasks[name]
			icon := IconFor(st.Status)
			label := name
			if len(label) > width-6 {
				label = label[:width-9] + "..."
			}

			line := fmt.Sprintf("%s %s", icon, label)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

func (m TaskPaneModel) selectedTaskName() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.order[m.selectedIdx]
	}
	return ""
}

func (m *TaskPaneModel) updateViewportContent() {
	name := m.selectedTaskName()
	if name == "" {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}
	st, ok := m.tasks[name]
	if !ok {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}
	m.viewport.SetContent(strings.Join(st.Log, "\n"))
	m.viewport.GotoBottom()
}

func (m *TaskPaneModel) resizeViewport() {
	listWidth := 25
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4
	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
