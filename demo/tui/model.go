package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"slidestudio/types"
)

// Model is the TUI client state (thin client over the render API)
type Model struct {
	Client  *RenderClient
	Request types.RenderRequest

	RunID      string
	Status     *types.RunStatus
	Submitting bool
	Err        error
	// minAttempt is the attempt whose end stops polling
	minAttempt int

	// Connection status
	Connected bool
}

// NewModel creates a new TUI model for rendering req.
// A non-empty runID follows an existing run instead.
func NewModel(apiURL string, req types.RenderRequest, runID string) Model {
	return Model{
		Client:    NewRenderClient(apiURL),
		Request:   req,
		RunID:     runID,
		Connected: true,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	if m.RunID == "" {
		return nil
	}
	return tea.Batch(pollStatus(m.Client, m.RunID), tickCmd())
}

func (m Model) state() types.RunState {
	if m.Status == nil {
		return ""
	}
	return m.Status.State
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to the render API")
	}
	if m.Err != nil {
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", m.Err))
	}
	if m.Submitting {
		return StatusStyle.Render("📤 Submitting render...")
	}

	switch m.state() {
	case "":
		return HighlightStyle.Render("👋 Ready to render!") + "\n\n" +
			InfoStyle.Render(fmt.Sprintf("%q, %d slide(s)", m.Request.Plan.Theme, len(m.Request.Plan.Slides)))
	case types.RunQueued:
		return StatusStyle.Render(fmt.Sprintf("⏰ Queued (run: %s)...", m.RunID))
	case types.RunRunning:
		return StatusStyle.Render(fmt.Sprintf("🎬 Rendering attempt %d: %s", m.Status.Attempt, progressBar(m.Status.Progress, 30)))
	case types.RunComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case types.RunFailed:
		return ErrorStyle.Render(fmt.Sprintf("❌ Run failed: %s", m.Status.Error))
	default:
		return ""
	}
}

// formatSlides renders one line per slide
func (m Model) formatSlides() string {
	var b strings.Builder
	for _, s := range m.Status.Slides {
		line := fmt.Sprintf("%s slide %2d  %-13s", slideIcon(s.State), s.SlideNumber, s.State)
		if s.ImageOrigin != "" {
			line += "  image: " + s.ImageOrigin
		}
		if s.Skipped {
			line += "  (reused)"
		}
		if s.Error != "" {
			line += "  " + s.Error
		}
		b.WriteString(slideStyle(s.State).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// formatResult formats the finished run for display
func (m Model) formatResult() string {
	var b strings.Builder

	b.WriteString(HighlightStyle.Render("Render Result"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", m.Status.RunID))
	b.WriteString(fmt.Sprintf("Video: %s\n", StatusStyle.Render(m.Status.OutputPath)))
	if len(m.Status.FailedSlides) > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Left out: slides %v", m.Status.FailedSlides)))
		b.WriteString("\n")
	}
	for _, p := range m.Status.Published {
		b.WriteString(fmt.Sprintf("Published: %s\n", p))
	}
	return b.String()
}

func slideIcon(s types.SlideState) string {
	switch s {
	case types.SlideUnitReady:
		return "✅"
	case types.SlideFailed:
		return "❌"
	case types.SlidePending:
		return "⏳"
	default:
		return "🔄"
	}
}

func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("█", filled), strings.Repeat("░", width-filled), fraction*100)
}
