// Package jobs runs render requests in the background, one session per run id.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidestudio/config"
	"slidestudio/narration"
	"slidestudio/orchestrator"
	"slidestudio/publish"
	"slidestudio/state"
	"slidestudio/types"
)

var (
	// ErrRunActive is returned when a run is already executing.
	ErrRunActive = errors.New("jobs: run is already active")
	// ErrUnknownRun is returned for run ids with no session or stored status.
	ErrUnknownRun = errors.New("jobs: unknown run")
	// ErrNoVideo is returned when a run has not produced a video yet.
	ErrNoVideo = errors.New("jobs: run has no video")
	// ErrInvalidRunID is returned for run ids that are not a single safe path element.
	ErrInvalidRunID = errors.New("jobs: invalid run id")
)

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateRunID accepts ids made of letters, digits, '-' and '_', at most 64
// long. Run ids name the run's workspace directory and output file.
func ValidateRunID(id string) error {
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return nil
}

// pathUnder joins root and name and fails unless the result is a direct
// child of root.
func pathUnder(root, name string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	p := filepath.Join(absRoot, name)
	if filepath.Dir(p) != absRoot {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidRunID, name, absRoot)
	}
	return p, nil
}

// Pipeline renders a plan. *orchestrator.Orchestrator implements it.
type Pipeline interface {
	Run(ctx context.Context, plan *types.PresentationPlan, voice narration.VoiceID, workspaceDir string) (*orchestrator.Result, error)
}

// PipelineFactory builds the pipeline of a new session.
type PipelineFactory func(opts orchestrator.Options) Pipeline

// OrchestratorFactory builds sessions on orchestrator.New with deps.
func OrchestratorFactory(deps orchestrator.Deps) PipelineFactory {
	return func(opts orchestrator.Options) Pipeline {
		return orchestrator.New(deps, opts)
	}
}

// Config holds runner settings.
type Config struct {
	WorkspaceDir string
	OutputDir    string
	Voice        narration.VoiceID
	Concurrency  int
	// MaxRetained caps how many finished sessions keep their slide cache.
	MaxRetained int
	Publishers  []publish.Publisher
}

type session struct {
	id        string
	workspace string
	plan      *types.PresentationPlan
	voice     narration.VoiceID
	publish   bool
	pipeline  Pipeline
	tracker   *state.Tracker

	active     bool
	finishedAt time.Time
}

// Runner owns render sessions. Retrying a run reuses its session so slides
// finished by an earlier attempt are not rendered again.
type Runner struct {
	cfg     Config
	store   state.Store
	factory PipelineFactory

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// NewRunner creates a runner. A nil store keeps statuses in memory.
func NewRunner(cfg Config, store state.Store, factory PipelineFactory) *Runner {
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = config.WorkspaceDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.OutputDir
	}
	if cfg.Voice == "" {
		cfg.Voice = narration.VoiceNanami
	}
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = config.MaxRetainedRuns
	}
	if store == nil {
		store = state.NewMemoryStore()
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		factory:  factory,
		sessions: make(map[string]*session),
	}
}

// Submit starts req in the background and returns its run id.
func (r *Runner) Submit(req types.RenderRequest) (string, error) {
	s, err := r.claim(req)
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(context.Background(), s)
	}()
	return s.id, nil
}

// Execute renders req and returns the final status.
func (r *Runner) Execute(ctx context.Context, req types.RenderRequest) (types.RunStatus, error) {
	s, err := r.claim(req)
	if err != nil {
		return types.RunStatus{}, err
	}
	return r.execute(ctx, s)
}

// Retry re-runs a finished run in the background.
func (r *Runner) Retry(runID string) error {
	r.mu.Lock()
	s, ok := r.sessions[runID]
	switch {
	case !ok:
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	case s.active:
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	s.active = true
	r.mu.Unlock()

	log.Printf("🔁 [jobs] retrying run %s", runID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(context.Background(), s)
	}()
	return nil
}

// Status returns the live status of a run, falling back to the store for
// runs whose session was evicted or belongs to another process.
func (r *Runner) Status(ctx context.Context, runID string) (types.RunStatus, error) {
	r.mu.Lock()
	s, ok := r.sessions[runID]
	r.mu.Unlock()
	if ok {
		return s.tracker.Snapshot(), nil
	}

	status, err := r.store.Load(ctx, runID)
	if errors.Is(err, state.ErrNotFound) {
		return types.RunStatus{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	if err != nil {
		return types.RunStatus{}, err
	}
	return *status, nil
}

// List returns the ids of runs known to the store.
func (r *Runner) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// VideoPath returns the output of a completed run.
func (r *Runner) VideoPath(ctx context.Context, runID string) (string, error) {
	status, err := r.Status(ctx, runID)
	if err != nil {
		return "", err
	}
	if status.State != types.RunComplete || status.OutputPath == "" {
		return "", fmt.Errorf("%w: %s is %s", ErrNoVideo, runID, status.State)
	}
	return status.OutputPath, nil
}

// Wait blocks until every background run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// claim creates or reuses the session for req and marks it active.
func (r *Runner) claim(req types.RenderRequest) (*session, error) {
	if err := req.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	runID := req.RunID
	if strings.TrimSpace(runID) == "" {
		runID = uuid.NewString()
	}
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	outputPath, err := pathUnder(r.cfg.OutputDir, runID+".mp4")
	if err != nil {
		return nil, err
	}
	workspace, err := pathUnder(r.cfg.WorkspaceDir, runID)
	if err != nil {
		return nil, err
	}
	voice := narration.ResolveVoice(req.Voice)
	if strings.TrimSpace(req.Voice) == "" {
		voice = r.cfg.Voice
	}
	plan := req.Plan

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[runID]; ok {
		if s.active {
			return nil, fmt.Errorf("%w: %s", ErrRunActive, runID)
		}
		// a resubmitted run keeps its cache; changed slides are detected by fingerprint
		s.plan, s.voice, s.publish, s.active = &plan, voice, req.Publish, true
		return s, nil
	}

	s := &session{
		id:        runID,
		workspace: workspace,
		plan:      &plan,
		voice:     voice,
		publish:   req.Publish,
		tracker:   state.NewTracker(runID, &plan, r.store),
		active:    true,
	}
	s.pipeline = r.factory(orchestrator.Options{
		Concurrency: r.cfg.Concurrency,
		OutputPath:  outputPath,
		OnProgress:  progressRecorder(s.tracker),
	})
	r.sessions[runID] = s
	log.Printf("📥 [jobs] run %s queued: %q, %d slide(s)", runID, plan.Theme, len(plan.Slides))
	return s, nil
}

func (r *Runner) execute(ctx context.Context, s *session) (types.RunStatus, error) {
	defer r.release(s)

	s.tracker.Start()
	res, err := s.pipeline.Run(ctx, s.plan, s.voice, s.workspace)

	var failed []int
	if res != nil {
		failed = res.FailedSlides()
		for _, f := range res.Failed {
			s.tracker.AddLog("Slide %d failed at %s: %v", f.SlideNumber, f.Stage, f.Err)
		}
		if len(res.Skipped) > 0 {
			s.tracker.AddLog("Reused %d slide(s) from the previous attempt", len(res.Skipped))
		}
	}
	if err != nil {
		log.Printf("❌ [jobs] run %s failed: %v", s.id, err)
		s.tracker.Fail(err, failed)
		return s.tracker.Snapshot(), err
	}

	s.tracker.Complete(res.VideoPath, failed)
	log.Printf("✅ [jobs] run %s complete: %s (%d slide(s), %d failed)", s.id, res.VideoPath, len(res.Included), len(failed))

	if s.publish {
		r.publishVideo(ctx, s, res.VideoPath)
	}
	return s.tracker.Snapshot(), nil
}

// publishVideo runs every publisher. Failures are logged on the run; the
// rendered video stays available either way.
func (r *Runner) publishVideo(ctx context.Context, s *session, videoPath string) {
	meta := publish.MetadataFromPlan(s.plan)
	for _, p := range r.cfg.Publishers {
		location, err := p.Publish(ctx, s.id, videoPath, meta)
		if err != nil {
			log.Printf("⚠️  [jobs] %s publish failed for run %s: %v", p.Name(), s.id, err)
			s.tracker.AddLog("%s publish failed: %v", p.Name(), err)
			continue
		}
		s.tracker.AddPublished(location)
	}
}

func (r *Runner) release(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.active = false
	s.finishedAt = time.Now()
	r.evictLocked()
}

// evictLocked drops the oldest finished sessions beyond MaxRetained.
// Their status stays readable from the store.
func (r *Runner) evictLocked() {
	var finished []*session
	for _, s := range r.sessions {
		if !s.active {
			finished = append(finished, s)
		}
	}
	if len(finished) <= r.cfg.MaxRetained {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].finishedAt.Before(finished[j].finishedAt)
	})
	for _, s := range finished[:len(finished)-r.cfg.MaxRetained] {
		delete(r.sessions, s.id)
		log.Printf("[jobs] evicted session %s", s.id)
	}
}

func progressRecorder(tracker *state.Tracker) orchestrator.ProgressFunc {
	return func(p orchestrator.Progress) {
		if p.SlideNumber == 0 {
			return
		}
		slide := types.SlideStatus{
			SlideNumber: p.SlideNumber,
			State:       p.State,
			ImageOrigin: string(p.ImageOrigin),
			Skipped:     p.Skipped,
		}
		if p.Err != nil {
			slide.Error = p.Err.Error()
		}
		tracker.SetSlide(slide, p.Fraction)
	}
}
