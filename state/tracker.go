package state

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"slidestudio/config"
	"slidestudio/types"
)

// Tracker holds the live status of one run with thread-safe access and
// writes every change through to a Store.
type Tracker struct {
	mu      sync.RWMutex
	status  types.RunStatus
	maxLogs int
	store   Store
	saveMu  sync.Mutex
}

// NewTracker creates a queued run status for plan.
func NewTracker(runID string, plan *types.PresentationPlan, store Store) *Tracker {
	now := time.Now()
	t := &Tracker{
		status: types.RunStatus{
			RunID:     runID,
			Theme:     plan.Theme,
			State:     types.RunQueued,
			Logs:      make([]types.LogEntry, 0),
			StartedAt: now,
			UpdatedAt: now,
		},
		maxLogs: config.MaxRunLogs,
		store:   store,
	}
	for _, s := range plan.Ordered() {
		t.status.Slides = append(t.status.Slides, types.SlideStatus{SlideNumber: s.SlideNumber, State: types.SlidePending})
	}
	t.persist()
	return t
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() types.RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.copyLocked()
}

func (t *Tracker) copyLocked() types.RunStatus {
	s := t.status
	s.Slides = append([]types.SlideStatus(nil), t.status.Slides...)
	s.FailedSlides = append([]int(nil), t.status.FailedSlides...)
	s.Published = append([]string(nil), t.status.Published...)
	s.Logs = append([]types.LogEntry{}, t.status.Logs...)
	return s
}

// AddLog appends to the run's log ring.
func (t *Tracker) AddLog(format string, args ...any) {
	t.update(func(s *types.RunStatus) {
		t.appendLog(s, fmt.Sprintf(format, args...))
	})
}

func (t *Tracker) appendLog(s *types.RunStatus, msg string) {
	s.Logs = append(s.Logs, types.LogEntry{Timestamp: time.Now(), Message: msg})
	if len(s.Logs) > t.maxLogs {
		s.Logs = s.Logs[len(s.Logs)-t.maxLogs:]
	}
}

// Start marks a new attempt as running.
func (t *Tracker) Start() {
	t.update(func(s *types.RunStatus) {
		s.State = types.RunRunning
		s.Attempt++
		s.Error = ""
		s.Progress = 0
		t.appendLog(s, fmt.Sprintf("Attempt %d started", s.Attempt))
	})
}

// SetSlide records a slide state change.
func (t *Tracker) SetSlide(slide types.SlideStatus, progress float64) {
	t.update(func(s *types.RunStatus) {
		found := false
		for i := range s.Slides {
			if s.Slides[i].SlideNumber == slide.SlideNumber {
				s.Slides[i] = slide
				found = true
				break
			}
		}
		if !found {
			s.Slides = append(s.Slides, slide)
			sort.Slice(s.Slides, func(i, j int) bool { return s.Slides[i].SlideNumber < s.Slides[j].SlideNumber })
		}
		if progress > s.Progress {
			s.Progress = progress
		}
	})
}

// Complete marks the run finished with a video.
func (t *Tracker) Complete(outputPath string, failed []int) {
	t.update(func(s *types.RunStatus) {
		s.State = types.RunComplete
		s.Progress = 1
		s.OutputPath = outputPath
		s.FailedSlides = failed
		t.appendLog(s, "Video written to "+outputPath)
	})
}

// Fail marks the run failed.
func (t *Tracker) Fail(err error, failed []int) {
	t.update(func(s *types.RunStatus) {
		s.State = types.RunFailed
		s.Error = err.Error()
		s.FailedSlides = failed
		t.appendLog(s, "Error: "+err.Error())
	})
}

// AddPublished records where the video was published.
func (t *Tracker) AddPublished(location string) {
	t.update(func(s *types.RunStatus) {
		s.Published = append(s.Published, location)
		t.appendLog(s, "Published to "+location)
	})
}

func (t *Tracker) update(fn func(s *types.RunStatus)) {
	t.mu.Lock()
	fn(&t.status)
	t.status.UpdatedAt = time.Now()
	t.mu.Unlock()
	t.persist()
}

func (t *Tracker) persist() {
	if t.store == nil {
		return
	}
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	snap := t.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.store.Save(ctx, &snap); err != nil {
		log.Printf("⚠️  [state] failed to persist run %s: %v", snap.RunID, err)
	}
}
