package tui

import (
	"time"

	"slidestudio/types"
)

// Messages for the tea program (polling-based)

// StatusUpdateMsg is sent when we receive a run status
type StatusUpdateMsg struct {
	Status *types.RunStatus
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// SubmittedMsg is sent when a render or retry was accepted
type SubmittedMsg struct {
	RunID string
	Err   error
}
