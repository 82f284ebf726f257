package tui

import (
	"strings"

	"slidestudio/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🎞️  SlideStudio Render"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	// Slides
	if m.Status != nil && len(m.Status.Slides) > 0 {
		b.WriteString(m.formatSlides())
		b.WriteString("\n")
	}

	// Logs
	if m.Status != nil && len(m.Status.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Status.Logs
		if len(logs) > 8 {
			logs = logs[len(logs)-8:]
		}
		for _, entry := range logs {
			b.WriteString(InfoStyle.Render("   " + entry.Timestamp.Format("15:04:05") + " " + entry.Message))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Results
	if m.state() == types.RunComplete {
		b.WriteString(BoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	// Help text
	switch m.state() {
	case "":
		if m.RunID == "" {
			b.WriteString(InfoStyle.Render(TextFooterIdle))
		} else {
			b.WriteString(InfoStyle.Render(TextFooterRunning))
		}
	case types.RunFailed:
		b.WriteString(InfoStyle.Render(TextFooterFailed))
	case types.RunComplete:
		b.WriteString(HighlightStyle.Render(TextFooterComplete))
	default:
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	}

	return b.String()
}
