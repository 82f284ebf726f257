package types

import "time"

// RunState is the lifecycle state of a render run
type RunState string

const (
	RunQueued   RunState = "queued"
	RunRunning  RunState = "running"
	RunComplete RunState = "complete"
	RunFailed   RunState = "failed"
)

// SlideState is the per-slide pipeline state
type SlideState string

const (
	SlidePending      SlideState = "pending"
	SlideImageSourced SlideState = "image-sourced"
	SlideComposed     SlideState = "composed"
	SlideNarrated     SlideState = "narrated"
	SlideUnitReady    SlideState = "unit-ready"
	SlideFailed       SlideState = "failed"
)

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// SlideStatus is the externally visible state of one slide
type SlideStatus struct {
	SlideNumber int        `json:"slide_number"`
	State       SlideState `json:"state"`
	ImageOrigin string     `json:"image_origin,omitempty"`
	Skipped     bool       `json:"skipped,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunStatus is the JSON snapshot of a render run
type RunStatus struct {
	RunID        string        `json:"run_id"`
	Theme        string        `json:"theme"`
	State        RunState      `json:"state"`
	Progress     float64       `json:"progress"`
	Attempt      int           `json:"attempt"`
	Slides       []SlideStatus `json:"slides"`
	FailedSlides []int         `json:"failed_slides,omitempty"`
	OutputPath   string        `json:"output_path,omitempty"`
	Published    []string      `json:"published,omitempty"`
	Error        string        `json:"error,omitempty"`
	Logs         []LogEntry    `json:"logs"`
	StartedAt    time.Time     `json:"started_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Finished reports whether the run has reached a terminal state
func (s *RunStatus) Finished() bool {
	return s.State == RunComplete || s.State == RunFailed
}
