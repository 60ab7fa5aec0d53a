package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/juststeveking/lookout/internal/schedule"
)

// maxEvents is how many recent events the dashboard keeps
const maxEvents = 8

// Model represents the scheduler dashboard state
type Model struct {
	scheduler *schedule.Scheduler
	target    config.Target
	cancel    func()
	width     int
	height    int
	now       time.Time
	quitting  bool
	running   bool
	spinner   spinner.Model
	last      *monitor.Outcome
	events    []EventLine
}

// EventLine is one entry in the recent events list
type EventLine struct {
	Time   time.Time
	Text   string
	Status monitor.Status
}

// NewModel creates a new dashboard model. cancel is called on quit.
func NewModel(s *schedule.Scheduler, target config.Target, cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorChecking)

	return Model{
		scheduler: s,
		target:    target,
		cancel:    cancel,
		now:       time.Now(),
		spinner:   sp,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvents(m.scheduler),
		tea.EnterAltScreen,
		doTick(),
		m.spinner.Tick,
	)
}

// eventMsg wraps a scheduler event for Bubble Tea
type eventMsg schedule.Event

// waitForEvents listens for scheduler events
func waitForEvents(s *schedule.Scheduler) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-s.Events())
	}
}

// tickMsg is sent on every tick
type tickMsg time.Time

// doTick returns a command that waits for the next tick
func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
