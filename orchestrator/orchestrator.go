// Package orchestrator drives a presentation plan through image sourcing,
// composition and narration, then hands the finished slides to the assembler.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"slidestudio/config"
	"slidestudio/imagesource"
	"slidestudio/narration"
	"slidestudio/slide"
	"slidestudio/types"
	"slidestudio/video"
)

// ErrNoUnits is returned when every slide failed.
var ErrNoUnits = errors.New("orchestrator: no slide produced a usable unit")

// ImageSource resolves a background for a query. It never fails.
type ImageSource interface {
	Fetch(ctx context.Context, query string) imagesource.SourcedImage
}

// Compositor renders one slide.
type Compositor interface {
	Compose(bg image.Image, title string, bullets []string) (*image.RGBA, error)
}

// Narrator writes a script's audio to outPath and reports success.
type Narrator interface {
	Synthesize(ctx context.Context, script string, voice narration.VoiceID, outPath string) (string, bool)
}

// Assembler turns ordered units into the final video.
type Assembler interface {
	Assemble(units []video.AssemblyUnit, outputPath string) (string, error)
}

// Deps are the pipeline stages.
type Deps struct {
	Images     ImageSource
	Compositor Compositor
	Narrator   Narrator
	Assembler  Assembler
}

// Options tune a single orchestrator.
type Options struct {
	// Concurrency is the number of slides processed at once.
	Concurrency int
	// OutputPath is the final video; defaults to output/presentation.mp4.
	OutputPath string
	// OnProgress receives every slide state change. Calls are serialized.
	OnProgress ProgressFunc
}

// Progress describes one state change of a run.
type Progress struct {
	SlideNumber int
	State       types.SlideState
	ImageOrigin imagesource.Origin
	Skipped     bool
	Err         error
	// Fraction is the completion of the whole run in [0, 1].
	Fraction float64
}

// ProgressFunc observes run progress.
type ProgressFunc func(Progress)

// SlideFailure records why a slide was left out of the video.
type SlideFailure struct {
	SlideNumber int
	Stage       string
	Err         error
}

func (f SlideFailure) Error() string {
	return fmt.Sprintf("slide %d: %s: %v", f.SlideNumber, f.Stage, f.Err)
}

// Result summarizes one invocation of Run.
type Result struct {
	VideoPath string
	// Included lists the slides in the video, ascending.
	Included []int
	// Skipped lists slides reused from an earlier invocation.
	Skipped []int
	Failed  []SlideFailure
}

// FailedSlides returns the slide numbers in Failed.
func (r *Result) FailedSlides() []int {
	out := make([]int, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.SlideNumber)
	}
	return out
}

type slideRecord struct {
	state       types.SlideState
	origin      imagesource.Origin
	composed    *image.RGBA
	audio       []byte
	visualFP    string
	narrationFP string
	err         error
}

// Orchestrator owns the generated assets of one run. Calling Run again with
// the same plan only redoes slides that have not reached unit-ready.
type Orchestrator struct {
	deps Deps
	opts Options

	runMu  sync.Mutex
	emitMu sync.Mutex

	mu       sync.Mutex
	records  map[int]*slideRecord
	done     int
	total    int
	progress ProgressFunc
}

// New creates an Orchestrator with an empty asset cache.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = config.DefaultConcurrency
	}
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(config.OutputDir, "presentation.mp4")
	}
	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		records:  make(map[int]*slideRecord),
		progress: opts.OnProgress,
	}
}

// Invalidate drops cached assets so the given slides are regenerated.
func (o *Orchestrator) Invalidate(slideNumbers ...int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, n := range slideNumbers {
		delete(o.records, n)
	}
}

// SlideState reports the cached state of slide n.
func (o *Orchestrator) SlideState(n int) types.SlideState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.records[n]; ok {
		return rec.state
	}
	return types.SlidePending
}

// Run renders plan into a video. Slides that fail are reported in the
// result and left out; the run itself fails only when no slide survived,
// the workspace cannot be claimed or the encode fails.
func (o *Orchestrator) Run(ctx context.Context, plan *types.PresentationPlan, voice narration.VoiceID, workspaceDir string) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if voice == "" {
		voice = narration.VoiceNanami
	}

	o.runMu.Lock()
	defer o.runMu.Unlock()

	ws, err := PrepareWorkspace(workspaceDir)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	slides := plan.Ordered()
	o.mu.Lock()
	o.done, o.total = 0, len(slides)
	o.mu.Unlock()

	log.Printf("📋 [run] %q: %d slide(s), voice %s, workspace %s", plan.Theme, len(slides), voice, ws.Dir)

	result := &Result{}
	var resMu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(o.opts.Concurrency)
	for _, spec := range slides {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			skipped, failure := o.processSlide(ctx, ws, spec, voice)

			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case failure != nil:
				result.Failed = append(result.Failed, *failure)
			case skipped:
				result.Skipped = append(result.Skipped, spec.SlideNumber)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("run cancelled: %w", err)
	}

	slices.SortFunc(result.Failed, func(a, b SlideFailure) int { return a.SlideNumber - b.SlideNumber })
	slices.Sort(result.Skipped)

	var units []video.AssemblyUnit
	for _, spec := range slides {
		if o.SlideState(spec.SlideNumber) != types.SlideUnitReady {
			continue
		}
		units = append(units, video.AssemblyUnit{
			SlideNumber: spec.SlideNumber,
			ImagePath:   ws.ImagePath(spec.SlideNumber),
			AudioPath:   ws.AudioPath(spec.SlideNumber),
		})
		result.Included = append(result.Included, spec.SlideNumber)
	}

	if len(result.Failed) > 0 {
		log.Printf("⚠️  [run] %d slide(s) failed: %v", len(result.Failed), result.FailedSlides())
	}
	if len(units) == 0 {
		return result, ErrNoUnits
	}

	if err := os.MkdirAll(filepath.Dir(o.opts.OutputPath), 0o755); err != nil {
		return result, fmt.Errorf("create output dir: %w", err)
	}
	path, err := o.deps.Assembler.Assemble(units, o.opts.OutputPath)
	if err != nil {
		return result, fmt.Errorf("assemble video: %w", err)
	}
	result.VideoPath = path

	// slide number 0 marks the run as a whole
	o.emit(Progress{Fraction: 1})
	log.Printf("✅ [run] %q: %d/%d slide(s) in %s", plan.Theme, len(units), len(slides), path)
	return result, nil
}

// processSlide moves one slide through the state machine, reusing cached
// assets whose inputs have not changed.
func (o *Orchestrator) processSlide(ctx context.Context, ws *Workspace, spec types.SlideSpec, voice narration.VoiceID) (skipped bool, failure *SlideFailure) {
	n := spec.SlideNumber
	rec := o.record(n)
	visualFP := spec.VisualFingerprint()
	narrationFP := spec.NarrationFingerprint(string(voice))

	fail := func(stage string, err error) (bool, *SlideFailure) {
		o.transition(n, rec, types.SlideFailed, err)
		o.finishSlide(n, rec, false)
		log.Printf("❌ [run] slide %d failed at %s: %v", n, stage, err)
		return false, &SlideFailure{SlideNumber: n, Stage: stage, Err: err}
	}

	if rec.state == types.SlideUnitReady && rec.visualFP == visualFP && rec.narrationFP == narrationFP {
		if err := o.materialize(ws, n, rec); err != nil {
			return fail("workspace", err)
		}
		log.Printf("⏭️  [run] slide %d already complete, reusing assets", n)
		o.finishSlide(n, rec, true)
		return true, nil
	}

	if rec.composed == nil || rec.visualFP != visualFP {
		rec.composed = nil
		src := o.deps.Images.Fetch(ctx, spec.ImageQuery)
		if src.Image == nil || src.Image.Bounds().Empty() {
			return fail("image", errors.New("image source returned no bitmap"))
		}
		rec.origin = src.Origin
		o.transition(n, rec, types.SlideImageSourced, nil)

		composed, err := o.deps.Compositor.Compose(src.Image, spec.Title, spec.BulletPoints)
		if err != nil {
			return fail("compose", err)
		}
		rec.composed, rec.visualFP = composed, visualFP
	}
	if err := slide.SavePNG(ws.ImagePath(n), rec.composed); err != nil {
		return fail("compose", err)
	}
	o.transition(n, rec, types.SlideComposed, nil)

	if rec.audio != nil && rec.narrationFP == narrationFP {
		if err := os.WriteFile(ws.AudioPath(n), rec.audio, 0o644); err != nil {
			return fail("narrate", err)
		}
	} else {
		rec.audio = nil
		path, ok := o.deps.Narrator.Synthesize(ctx, spec.Script, voice, ws.AudioPath(n))
		if !ok {
			return fail("narrate", errors.New("narration synthesis failed"))
		}
		audio, err := os.ReadFile(path)
		if err != nil {
			return fail("narrate", err)
		}
		rec.audio, rec.narrationFP = audio, narrationFP
	}
	o.transition(n, rec, types.SlideNarrated, nil)

	o.transition(n, rec, types.SlideUnitReady, nil)
	o.finishSlide(n, rec, false)
	return false, nil
}

// materialize writes a cached slide's assets into a fresh workspace.
func (o *Orchestrator) materialize(ws *Workspace, n int, rec *slideRecord) error {
	if err := slide.SavePNG(ws.ImagePath(n), rec.composed); err != nil {
		return err
	}
	return os.WriteFile(ws.AudioPath(n), rec.audio, 0o644)
}

func (o *Orchestrator) record(n int) *slideRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[n]
	if !ok {
		rec = &slideRecord{state: types.SlidePending}
		o.records[n] = rec
	}
	return rec
}

func (o *Orchestrator) transition(n int, rec *slideRecord, state types.SlideState, err error) {
	o.mu.Lock()
	rec.state, rec.err = state, err
	p := Progress{SlideNumber: n, State: state, ImageOrigin: rec.origin, Err: err, Fraction: o.fraction()}
	o.mu.Unlock()
	o.emit(p)
}

// finishSlide counts the slide as done and reports the new fraction.
func (o *Orchestrator) finishSlide(n int, rec *slideRecord, skipped bool) {
	o.mu.Lock()
	o.done++
	p := Progress{SlideNumber: n, State: rec.state, ImageOrigin: rec.origin, Skipped: skipped, Err: rec.err, Fraction: o.fraction()}
	o.mu.Unlock()
	o.emit(p)
}

// fraction reserves the last tenth of the run for assembly. Callers hold o.mu.
func (o *Orchestrator) fraction() float64 {
	if o.total == 0 {
		return 0
	}
	return 0.9 * float64(o.done) / float64(o.total)
}

func (o *Orchestrator) emit(p Progress) {
	if o.progress == nil {
		return
	}
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.progress(p)
}
