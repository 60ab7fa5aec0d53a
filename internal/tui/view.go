package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/juststeveking/lookout/internal/schedule"
)

var (
	colorAccent   = lipgloss.Color("#04D9FF") // Neon Cyan
	colorClosed   = lipgloss.Color("#00FF94") // Neon Green
	colorOpen     = lipgloss.Color("#FF0055") // Neon Red
	colorChecking = lipgloss.Color("#FFD700") // Gold
	colorMuted    = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle   = lipgloss.Color("#24283b") // Dark Blue
	colorCard     = lipgloss.Color("#16161e") // Very Dark Blue
	colorText     = lipgloss.Color("#c0caf5") // Light Blue/White

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Background(colorCard).
			Padding(0, 1).
			MarginBottom(1)

	textStyle = lipgloss.NewStyle().
			Foreground(colorText)

	metadataStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	nextStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)
)

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width < 40 {
		width = 80
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(width))
	b.WriteString("\n\n")
	b.WriteString(m.renderTarget(width))
	b.WriteString("\n")
	b.WriteString(m.renderSchedule(width))
	b.WriteString("\n")
	b.WriteString(m.renderLast(width))
	b.WriteString("\n")
	b.WriteString(m.renderEvents(width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(width))
	b.WriteString("\n")

	return b.String()
}

// renderHeader renders the title with the current state on the right
func (m Model) renderHeader(width int) string {
	titleRendered := titleStyle.Render("LOOKOUT")

	var state string
	switch {
	case m.running:
		state = lipgloss.NewStyle().Foreground(colorChecking).Bold(true).Render(m.spinner.View() + " checking")
	case m.last != nil:
		state = statusStyle(m.last.Result.Status).Render("● " + string(m.last.Result.Status))
	default:
		state = metadataStyle.Render("● waiting")
	}

	gap := width - lipgloss.Width(titleRendered) - lipgloss.Width(state) - 2
	if gap < 0 {
		gap = 0
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleRendered,
		strings.Repeat(" ", gap),
		state,
	)

	return header + "\n" + lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("━", width))
}

// renderTarget renders the watched page and phrase
func (m Model) renderTarget(width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.target.Name))
	b.WriteString("\n")
	b.WriteString(metadataStyle.Render("URL     ") + textStyle.Render(truncate(m.target.URL, width-14)))
	b.WriteString("\n")
	b.WriteString(metadataStyle.Render("Phrase  ") + textStyle.Render(fmt.Sprintf("%q", truncate(m.target.Phrase, width-16))))

	return cardStyle.Width(width - 2).BorderForeground(colorAccent).Render(b.String())
}

// renderSchedule renders the time table with past slots muted and the next one highlighted
func (m Model) renderSchedule(width int) string {
	slots := m.scheduler.Slots()
	next, nextAt := schedule.NextSlot(slots, m.now)

	cells := make([]string, 0, len(slots))
	for _, slot := range slots {
		switch {
		case slot == next:
			cells = append(cells, nextStyle.Render("▶ "+slot.String()))
		case slot.On(m.now).Before(m.now):
			cells = append(cells, metadataStyle.Render("✓ "+slot.String()))
		default:
			cells = append(cells, textStyle.Render("  "+slot.String()))
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Schedule"))
	b.WriteString("  ")
	b.WriteString(metadataStyle.Render(fmt.Sprintf("next run %s (in %s)", nextAt.Format("Mon 15:04"), formatUntil(nextAt.Sub(m.now)))))
	b.WriteString("\n")
	b.WriteString(strings.Join(cells, "  "))

	return cardStyle.Width(width - 2).BorderForeground(colorSubtle).Render(b.String())
}

// renderLast renders the most recent outcome
func (m Model) renderLast(width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Last check"))
	b.WriteString("\n")

	border := colorSubtle
	if m.last == nil {
		b.WriteString(metadataStyle.Render("⟳ Waiting for the first check..."))
	} else {
		result := m.last.Result
		border = statusColor(result.Status)

		b.WriteString(statusStyle(result.Status).Render(statusIcon(result.Status) + " " + statusLabel(result.Status)))
		b.WriteString("\n")

		var details []string
		if result.StatusCode > 0 {
			details = append(details, fmt.Sprintf("HTTP %d", result.StatusCode))
		}
		if result.Duration > 0 {
			details = append(details, formatDuration(result.Duration))
		}
		if !result.CheckedAt.IsZero() {
			details = append(details, result.CheckedAt.Format(monitor.TimeLayout))
		}
		details = append(details, "run "+m.last.RunID)
		b.WriteString(metadataStyle.Render(strings.Join(details, " • ")))

		if m.last.Alerted {
			b.WriteString("\n")
			if m.last.Delivered {
				b.WriteString(textStyle.Render("Alert delivered"))
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(colorOpen).Render("Alert could not be delivered, see log"))
			}
		}

		if result.Err != nil {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(colorOpen).Render(truncate(result.Err.Error(), width-6)))
		}
	}

	return cardStyle.Width(width - 2).BorderForeground(border).Render(b.String())
}

// renderEvents renders the recent events list
func (m Model) renderEvents(width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent events"))

	if len(m.events) == 0 {
		b.WriteString("\n")
		b.WriteString(metadataStyle.Render("No events yet"))
	}
	for _, e := range m.events {
		b.WriteString("\n")
		line := truncate(e.Text, width-16)
		style := textStyle
		if e.Status != "" {
			style = statusStyle(e.Status)
		}
		b.WriteString(metadataStyle.Render(e.Time.Format("15:04:05")) + "  " + style.Render(line))
	}

	return b.String()
}

// renderFooter renders the status bar
func (m Model) renderFooter(width int) string {
	footerStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorSubtle).
		Width(width).
		PaddingTop(1)

	left := fmt.Sprintf(" %s │ Run now: r │ Quit: q / Ctrl+C", m.now.Format("15:04:05"))
	right := fmt.Sprintf("%d daily runs ", len(m.scheduler.Slots()))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func statusColor(status monitor.Status) lipgloss.Color {
	switch status {
	case monitor.StatusClosed:
		return colorClosed
	case monitor.StatusOpen:
		return colorOpen
	default:
		return colorChecking
	}
}

func statusStyle(status monitor.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColor(status)).Bold(true)
}

// statusIcon returns the icon for a status
func statusIcon(status monitor.Status) string {
	switch status {
	case monitor.StatusClosed:
		return "✓"
	case monitor.StatusOpen:
		return "!"
	default:
		return "✗"
	}
}

func statusLabel(status monitor.Status) string {
	switch status {
	case monitor.StatusClosed:
		return "Phrase found - registration still closed"
	case monitor.StatusOpen:
		return "PHRASE NOT FOUND - registration might be open"
	default:
		return "Check failed"
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatUntil formats the time left until the next run
func formatUntil(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if n < 2 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
