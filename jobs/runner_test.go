package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"slidestudio/narration"
	"slidestudio/orchestrator"
	"slidestudio/publish"
	"slidestudio/state"
	"slidestudio/types"
)

type fakePipeline struct {
	opts orchestrator.Options

	mu         sync.Mutex
	calls      int
	workspaces []string
	voices     []narration.VoiceID
	failFirst  bool
	release    chan struct{}
}

func (f *fakePipeline) Run(ctx context.Context, plan *types.PresentationPlan, voice narration.VoiceID, workspaceDir string) (*orchestrator.Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.workspaces = append(f.workspaces, workspaceDir)
	f.voices = append(f.voices, voice)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	res := &orchestrator.Result{}
	slides := plan.Ordered()
	for i, s := range slides {
		if f.opts.OnProgress != nil {
			f.opts.OnProgress(orchestrator.Progress{
				SlideNumber: s.SlideNumber,
				State:       types.SlideUnitReady,
				ImageOrigin: "primary",
				Fraction:    0.9 * float64(i+1) / float64(len(slides)),
			})
		}
		res.Included = append(res.Included, s.SlideNumber)
	}
	if f.failFirst && call == 1 {
		res.Failed = []orchestrator.SlideFailure{{SlideNumber: 2, Stage: "narrate", Err: errors.New("tts down")}}
		return res, orchestrator.ErrNoUnits
	}
	res.VideoPath = f.opts.OutputPath
	return res, nil
}

func (f *fakePipeline) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type pipelines struct {
	mu        sync.Mutex
	built     []*fakePipeline
	failFirst bool
	release   chan struct{}
}

func (p *pipelines) factory(opts orchestrator.Options) Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	fp := &fakePipeline{opts: opts, failFirst: p.failFirst, release: p.release}
	p.built = append(p.built, fp)
	return fp
}

type fakePublisher struct {
	name string
	err  error

	mu    sync.Mutex
	paths []string
	meta  publish.Metadata
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, runID, videoPath string, meta publish.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, videoPath)
	f.meta = meta
	return f.name + "://" + runID, nil
}

func testRequest(runID string) types.RenderRequest {
	return types.RenderRequest{
		RunID: runID,
		Plan: types.PresentationPlan{
			Theme: "Robots",
			Slides: []types.SlideSpec{
				{SlideNumber: 2, Title: "Two", Script: "two"},
				{SlideNumber: 1, Title: "One", Script: "one"},
			},
		},
	}
}

func newTestRunner(t *testing.T, p *pipelines, pubs ...publish.Publisher) (*Runner, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	dir := t.TempDir()
	r := NewRunner(Config{
		WorkspaceDir: filepath.Join(dir, "work"),
		OutputDir:    filepath.Join(dir, "out"),
		Publishers:   pubs,
	}, store, p.factory)
	return r, store
}

func TestExecuteCompletesRun(t *testing.T) {
	p := &pipelines{}
	r, store := newTestRunner(t, p)

	status, err := r.Execute(context.Background(), testRequest("run-1"))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if status.State != types.RunComplete || status.Progress != 1 || status.Attempt != 1 {
		t.Fatalf("status = %+v", status)
	}
	if filepath.Base(status.OutputPath) != "run-1.mp4" {
		t.Fatalf("OutputPath = %q", status.OutputPath)
	}
	if len(status.Slides) != 2 || status.Slides[0].SlideNumber != 1 || status.Slides[0].State != types.SlideUnitReady {
		t.Fatalf("slides = %+v", status.Slides)
	}
	if status.Slides[0].ImageOrigin != "primary" {
		t.Fatalf("image origin not recorded: %+v", status.Slides[0])
	}

	fp := p.built[0]
	if filepath.Base(fp.workspaces[0]) != "run-1" {
		t.Fatalf("workspace = %q", fp.workspaces[0])
	}
	if fp.voices[0] != narration.VoiceNanami {
		t.Fatalf("voice = %q; want default", fp.voices[0])
	}

	stored, err := store.Load(context.Background(), "run-1")
	if err != nil || stored.State != types.RunComplete {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	path, err := r.VideoPath(context.Background(), "run-1")
	if err != nil || path != status.OutputPath {
		t.Fatalf("VideoPath = %q, %v", path, err)
	}
}

func TestExecuteRecordsFailureThenRetryReusesSession(t *testing.T) {
	p := &pipelines{failFirst: true}
	r, _ := newTestRunner(t, p)

	status, err := r.Execute(context.Background(), testRequest("run-2"))
	if !errors.Is(err, orchestrator.ErrNoUnits) {
		t.Fatalf("Execute error = %v; want ErrNoUnits", err)
	}
	if status.State != types.RunFailed || len(status.FailedSlides) != 1 || status.FailedSlides[0] != 2 {
		t.Fatalf("status = %+v", status)
	}
	if _, err := r.VideoPath(context.Background(), "run-2"); !errors.Is(err, ErrNoVideo) {
		t.Fatalf("VideoPath error = %v; want ErrNoVideo", err)
	}

	if err := r.Retry("run-2"); err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	r.Wait()

	if len(p.built) != 1 {
		t.Fatalf("built %d pipelines; retry must reuse the session", len(p.built))
	}
	if got := p.built[0].callCount(); got != 2 {
		t.Fatalf("pipeline calls = %d; want 2", got)
	}
	status, err = r.Status(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.State != types.RunComplete || status.Attempt != 2 || status.Error != "" {
		t.Fatalf("status after retry = %+v", status)
	}
}

func TestRetryUnknownRun(t *testing.T) {
	r, _ := newTestRunner(t, &pipelines{})
	if err := r.Retry("nope"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("Retry error = %v; want ErrUnknownRun", err)
	}
	if _, err := r.Status(context.Background(), "nope"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("Status error = %v; want ErrUnknownRun", err)
	}
}

func TestActiveRunRejectsResubmitAndRetry(t *testing.T) {
	p := &pipelines{release: make(chan struct{})}
	r, _ := newTestRunner(t, p)

	id, err := r.Submit(testRequest("run-3"))
	if err != nil || id != "run-3" {
		t.Fatalf("Submit = %q, %v", id, err)
	}
	if _, err := r.Submit(testRequest("run-3")); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second Submit error = %v; want ErrRunActive", err)
	}
	if err := r.Retry("run-3"); !errors.Is(err, ErrRunActive) {
		t.Fatalf("Retry error = %v; want ErrRunActive", err)
	}

	close(p.release)
	r.Wait()

	status, err := r.Status(context.Background(), "run-3")
	if err != nil || status.State != types.RunComplete {
		t.Fatalf("status = %+v, %v", status, err)
	}
}

func TestSubmitGeneratesRunID(t *testing.T) {
	r, _ := newTestRunner(t, &pipelines{})
	req := testRequest("")
	req.Voice = "keita"

	id, err := r.Submit(req)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("run id %q is not a uuid", id)
	}
	r.Wait()
}

func TestSubmitRejectsInvalidPlan(t *testing.T) {
	r, _ := newTestRunner(t, &pipelines{})
	req := types.RenderRequest{Plan: types.PresentationPlan{Theme: "empty"}}
	if _, err := r.Submit(req); err == nil {
		t.Fatal("expected error for a plan without slides")
	}
}

func TestPublishersRunAfterSuccess(t *testing.T) {
	good := &fakePublisher{name: "s3"}
	bad := &fakePublisher{name: "youtube", err: errors.New("quota exceeded")}
	r, _ := newTestRunner(t, &pipelines{}, good, bad)

	req := testRequest("run-4")
	req.Publish = true
	status, err := r.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(status.Published) != 1 || status.Published[0] != "s3://run-4" {
		t.Fatalf("Published = %v", status.Published)
	}
	if good.meta.Title != "Robots" || len(good.paths) != 1 {
		t.Fatalf("publisher saw %+v", good.meta)
	}
	if status.State != types.RunComplete {
		t.Fatalf("publish failure must not fail the run: %+v", status)
	}

	unpublished := testRequest("run-5")
	if _, err := r.Execute(context.Background(), unpublished); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(good.paths) != 1 {
		t.Fatal("publishers ran for a request without publish")
	}
}

func TestFinishedSessionsAreEvicted(t *testing.T) {
	p := &pipelines{}
	store := state.NewMemoryStore()
	r := NewRunner(Config{
		WorkspaceDir: t.TempDir(),
		OutputDir:    t.TempDir(),
		MaxRetained:  2,
	}, store, p.factory)

	for i := 1; i <= 4; i++ {
		if _, err := r.Execute(context.Background(), testRequest(fmt.Sprintf("run-%d", i))); err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}

	r.mu.Lock()
	kept := len(r.sessions)
	_, oldest := r.sessions["run-1"]
	r.mu.Unlock()
	if kept != 2 || oldest {
		t.Fatalf("sessions kept = %d (run-1 kept: %v); want the 2 newest", kept, oldest)
	}

	status, err := r.Status(context.Background(), "run-1")
	if err != nil || status.State != types.RunComplete {
		t.Fatalf("evicted status = %+v, %v", status, err)
	}
	if err := r.Retry("run-1"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("Retry of evicted run = %v; want ErrUnknownRun", err)
	}
}

func TestKafkaHandler(t *testing.T) {
	p := &pipelines{}
	r, _ := newTestRunner(t, p)
	h := r.KafkaHandler()

	msg, _ := json.Marshal(testRequest("kafka-1"))
	cases := []struct {
		name     string
		payload  []byte
		wantMark bool
		wantErr  bool
	}{
		{"valid request", msg, true, false},
		{"broken json", []byte(`{"plan":`), true, false},
		{"plan without slides", []byte(`{"run_id":"x","plan":{"theme":"t","slides":[]}}`), true, false},
		{"run id with a path", []byte(`{"run_id":"../etc","plan":{"slides":[{"slide_number":1}]}}`), true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mark, err := h.HandleMessage(context.Background(), c.payload)
			if mark != c.wantMark || (err != nil) != c.wantErr {
				t.Fatalf("HandleMessage = %v, %v", mark, err)
			}
		})
	}

	status, err := r.Status(context.Background(), "kafka-1")
	if err != nil || status.State != types.RunComplete {
		t.Fatalf("status = %+v, %v", status, err)
	}
}

func TestKafkaHandlerLeavesActiveRunUnmarked(t *testing.T) {
	p := &pipelines{release: make(chan struct{})}
	r, _ := newTestRunner(t, p)

	if _, err := r.Submit(testRequest("kafka-2")); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	msg, _ := json.Marshal(testRequest("kafka-2"))
	mark, err := r.KafkaHandler().HandleMessage(context.Background(), msg)
	if mark || !errors.Is(err, ErrRunActive) {
		t.Fatalf("HandleMessage = %v, %v; want unmarked ErrRunActive", mark, err)
	}

	close(p.release)
	r.Wait()
}

func TestClaimRejectsUnsafeRunIDs(t *testing.T) {
	cases := []struct {
		name  string
		runID string
	}{
		{"parent dir", "../victim"},
		{"nested path", "a/b"},
		{"dot dot", ".."},
		{"absolute", "/tmp/x"},
		{"backslash", `..\x`},
		{"surrounding spaces", " run-1 "},
		{"too long", strings.Repeat("a", 65)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &pipelines{}
			r, _ := newTestRunner(t, p)
			if _, err := r.Execute(context.Background(), testRequest(c.runID)); !errors.Is(err, ErrInvalidRunID) {
				t.Fatalf("Execute(%q) error = %v; want ErrInvalidRunID", c.runID, err)
			}
			if _, err := r.Submit(testRequest(c.runID)); !errors.Is(err, ErrInvalidRunID) {
				t.Fatalf("Submit(%q) error = %v; want ErrInvalidRunID", c.runID, err)
			}
			if len(p.built) != 0 {
				t.Fatal("pipeline built for a rejected run id")
			}
		})
	}
}

func TestBlankRunIDGetsGeneratedID(t *testing.T) {
	p := &pipelines{}
	r, _ := newTestRunner(t, p)
	status, err := r.Execute(context.Background(), testRequest("   "))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if err := ValidateRunID(status.RunID); err != nil || len(status.RunID) != 36 {
		t.Fatalf("run id = %q, %v", status.RunID, err)
	}
}

func TestRunPathsStayUnderRoots(t *testing.T) {
	p := &pipelines{}
	r, _ := newTestRunner(t, p)
	if _, err := r.Execute(context.Background(), testRequest("run_ok-1")); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	fp := p.built[0]
	if got, want := filepath.Dir(fp.workspaces[0]), r.cfg.WorkspaceDir; got != want {
		t.Fatalf("workspace parent = %q; want %q", got, want)
	}
	if got, want := filepath.Dir(fp.opts.OutputPath), r.cfg.OutputDir; got != want {
		t.Fatalf("output parent = %q; want %q", got, want)
	}

	root := t.TempDir()
	for _, name := range []string{"..", "../x", "a/../../x", ""} {
		if _, err := pathUnder(root, name); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("pathUnder(%q) error = %v; want ErrInvalidRunID", name, err)
		}
	}
	if got, err := pathUnder(root, "run-1"); err != nil || got != filepath.Join(root, "run-1") {
		t.Errorf("pathUnder(run-1) = %q, %v", got, err)
	}
}
