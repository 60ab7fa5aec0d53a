package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/juststeveking/lookout/internal/schedule"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "r":
			if !m.running {
				m.scheduler.Trigger()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		m.handleEvent(schedule.Event(msg))
		return m, waitForEvents(m.scheduler)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.now = msg.Time()
		return m, doTick()
	}

	return m, nil
}

// Time returns the tick time
func (t tickMsg) Time() time.Time {
	return time.Time(t)
}

// handleEvent records a scheduler event
func (m *Model) handleEvent(e schedule.Event) {
	switch e.Type {
	case schedule.EventStarted:
		m.running = true
		m.addEvent(EventLine{Time: e.Time, Text: "Check started"})

	case schedule.EventFinished:
		m.running = false
		if e.Outcome != nil {
			m.last = e.Outcome
			m.addEvent(EventLine{Time: e.Time, Text: describeOutcome(*e.Outcome), Status: e.Outcome.Result.Status})
		}

	case schedule.EventSkipped:
		m.addEvent(EventLine{Time: e.Time, Text: "Skipped: previous check still running"})
	}
}

// addEvent prepends an event and trims the list
func (m *Model) addEvent(line EventLine) {
	m.events = append([]EventLine{line}, m.events...)
	if len(m.events) > maxEvents {
		m.events = m.events[:maxEvents]
	}
}

// describeOutcome returns a one-line summary of a cycle
func describeOutcome(out monitor.Outcome) string {
	result := out.Result
	switch result.Status {
	case monitor.StatusClosed:
		return fmt.Sprintf("[%s] Phrase found - registration still closed", out.RunID)
	case monitor.StatusOpen:
		delivery := "alert sent"
		if !out.Delivered {
			delivery = "alert NOT delivered"
		}
		return fmt.Sprintf("[%s] PHRASE NOT FOUND - %s", out.RunID, delivery)
	default:
		if result.Err != nil {
			return fmt.Sprintf("[%s] Check failed: %v", out.RunID, result.Err)
		}
		return fmt.Sprintf("[%s] Check failed", out.RunID)
	}
}
