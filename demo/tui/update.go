package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"slidestudio/types"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case SubmittedMsg:
		return m.handleSubmitted(msg)
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case TickMsg:
		if m.RunID == "" || m.finished() {
			return m, nil
		}
		return m, tea.Batch(pollStatus(m.Client, m.RunID), tickCmd())
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.RunID == "" && !m.Submitting {
			m.Submitting = true
			m.Err = nil
			return m, submitRender(m.Client, m.Request)
		}
	case "t", "T":
		if m.state() == types.RunFailed && !m.Submitting {
			m.Submitting = true
			m.Err = nil
			m.minAttempt = m.Status.Attempt + 1
			return m, retryRender(m.Client, m.RunID)
		}
	}
	return m, nil
}

// handleSubmitted starts polling an accepted run
func (m Model) handleSubmitted(msg SubmittedMsg) (tea.Model, tea.Cmd) {
	m.Submitting = false
	if msg.Err != nil {
		m.Err = fmt.Errorf("submit failed: %w", msg.Err)
		return m, nil
	}
	m.RunID = msg.RunID
	m.minAttempt = max(m.minAttempt, 1)
	return m, tea.Batch(pollStatus(m.Client, m.RunID), tickCmd())
}

// handleStatus syncs the local view with the server
func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		return m, nil
	}
	m.Connected = true
	m.Status = msg.Status
	return m, nil
}

func (m Model) finished() bool {
	return m.Status != nil && m.Status.Finished() && m.Status.Attempt >= m.minAttempt
}
