package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rkallberg/actsched/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneDAG
)

// Model is the root Bubble Tea model for the activityctl dashboard. It
// subscribes to a scheduler's event bus and renders task and pass progress
// live as ExecuteAll/ExecuteFiltered runs.
type Model struct {
	taskPane    TaskPaneModel
	dagPane     DAGPaneModel
	focusedPane PaneID
	eventSub    <-chan events.Event
	width       int
	height      int
	quitting    bool
	done        <-chan error
	result      error
}

// New creates a TUI model subscribed to every event the bus publishes, and
// a channel that reports the pass's outcome once the driving goroutine
// finishes ExecuteAll/ExecuteFiltered.
func New(eventBus *events.EventBus, done <-chan error) Model {
	return Model{
		taskPane:    NewTaskPaneModel(),
		dagPane:     NewDAGPaneModel(),
		focusedPane: PaneTasks,
		eventSub:    eventBus.SubscribeAll(256),
		done:        done,
	}
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), waitForDone(m.done))
}

func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil
		}
		return event
	}
}

// passDoneMsg carries the outcome of the driving ExecuteAll/ExecuteFiltered
// call back into the Bubble Tea update loop.
type passDoneMsg struct{ err error }

func waitForDone(done <-chan error) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-done
		if !ok {
			return nil
		}
		return passDoneMsg{err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 2
			m.updateFocusStates()
		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 1) % 2
			m.updateFocusStates()
		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()
		case KeyPane2:
			m.focusedPane = PaneDAG
			m.updateFocusStates()
		default:
			switch m.focusedPane {
			case PaneTasks:
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneDAG:
				var cmd tea.Cmd
				m.dagPane, cmd = m.dagPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.TaskStartedEvent, events.TaskCompletedEvent, events.TaskFailedEvent, events.TaskDisabledEvent:
		var cmd tea.Cmd
		m.taskPane, cmd = m.taskPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.DAGProgressEvent:
		var cmd tea.Cmd
		m.dagPane, cmd = m.dagPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case passDoneMsg:
		m.result = msg.err
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth := (m.width * 45) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	leftPane := lipgloss.NewStyle().
		Width(leftWidth).
		Height(availableHeight).
		Render(m.taskPane.View())

	rightPane := m.dagPane.View()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, lipgloss.NewStyle().Width(rightWidth).Render(rightPane))

	status := ""
	if m.result != nil {
		status = StyleStatusFailed.Render("pass error: " + m.result.Error())
	}

	helpBar := HelpView()
	if status != "" {
		helpBar = lipgloss.JoinHorizontal(lipgloss.Left, status, "  ", helpBar)
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, helpBar)
}

func (m *Model) computeLayout() {
	leftWidth := (m.width * 45) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.dagPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.dagPane.SetFocused(m.focusedPane == PaneDAG)
}
