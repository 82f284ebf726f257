package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"slidestudio/types"
)

// pollStatus creates a command to poll the run status
func pollStatus(client *RenderClient, runID string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus(runID)
		return StatusUpdateMsg{
			Status: status,
			Err:    err,
		}
	}
}

// submitRender creates a command that starts a render
func submitRender(client *RenderClient, req types.RenderRequest) tea.Cmd {
	return func() tea.Msg {
		runID, err := client.Submit(req)
		return SubmittedMsg{RunID: runID, Err: err}
	}
}

// retryRender creates a command that retries the current run
func retryRender(client *RenderClient, runID string) tea.Cmd {
	return func() tea.Msg {
		err := client.Retry(runID)
		return SubmittedMsg{RunID: runID, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
