// Package app wires the configured pipeline stages, run store, publishers
// and planner for the server and the CLIs.
package app

import (
	"context"
	"log"
	"net/http"

	"slidestudio/config"
	"slidestudio/imagesource"
	"slidestudio/jobs"
	"slidestudio/narration"
	"slidestudio/orchestrator"
	"slidestudio/planner"
	"slidestudio/publish"
	"slidestudio/slide"
	"slidestudio/state"
	"slidestudio/video"
)

// App holds the long-lived services built from Settings.
type App struct {
	Settings   *config.Settings
	Deps       orchestrator.Deps
	Store      state.Store
	Publishers []publish.Publisher
	Runner     *jobs.Runner
	// Planner is nil when no Cohere key is configured.
	Planner planner.Planner

	closers []func() error
}

// New builds every service. Optional integrations that fail to initialize
// are logged and left out.
func New(ctx context.Context, s *config.Settings) *App {
	a := &App{Settings: s}

	fonts := slide.NewFontResolver(s.FontCandidates)
	log.Printf("Using font %s", fonts.Source())

	synth := narration.NewSynthesizer(narration.NewEdgeTTS(s.EdgeTTSBin), config.NarrationWorkers)
	a.closers = append(a.closers, func() error { synth.Close(); return nil })

	a.Deps = orchestrator.Deps{
		Images:     imagesource.NewDefault(s.PexelsAPIKey, &http.Client{}),
		Compositor: slide.NewComposer(fonts),
		Narrator:   synth,
		Assembler:  video.NewAssembler(),
	}

	a.Store = a.newStore()
	a.Publishers = newPublishers(ctx, s)

	a.Runner = jobs.NewRunner(jobs.Config{
		WorkspaceDir: s.WorkspaceDir,
		OutputDir:    s.OutputDir,
		Voice:        narration.ResolveVoice(s.Voice),
		Concurrency:  s.Concurrency,
		Publishers:   a.Publishers,
	}, a.Store, jobs.OrchestratorFactory(a.Deps))

	if s.CohereAPIKey != "" {
		a.Planner = planner.NewCoherePlanner(s.CohereAPIKey, s.CohereModel, "")
	} else {
		log.Println("⚠️  COHERE_API_KEY not set, plan generation disabled")
	}
	return a
}

func (a *App) newStore() state.Store {
	s := a.Settings
	if s.RedisAddr == "" {
		return state.NewMemoryStore()
	}
	store, err := state.NewRedisStore(s.RedisAddr, s.RedisPassword, s.RedisDB, s.RunTTL)
	if err != nil {
		log.Printf("Warning: failed to connect to redis at %s: %v (run status kept in memory)", s.RedisAddr, err)
		return state.NewMemoryStore()
	}
	log.Printf("✅ Run status stored in redis at %s", s.RedisAddr)
	a.closers = append(a.closers, store.Close)
	return store
}

func newPublishers(ctx context.Context, s *config.Settings) []publish.Publisher {
	var pubs []publish.Publisher
	if s.S3.Bucket != "" {
		p, err := publish.NewS3Publisher(ctx, s.S3)
		if err != nil {
			log.Printf("Warning: failed to init S3 client: %v (uploads disabled)", err)
		} else {
			pubs = append(pubs, p)
		}
	}
	if s.YouTubeServiceAccount != "" {
		p, err := publish.NewYouTubePublisher(ctx, s.YouTubeServiceAccount, s.YouTubePrivacy)
		if err != nil {
			log.Printf("YouTube uploader not initialized: %v", err)
		} else {
			pubs = append(pubs, p)
		}
	}
	return pubs
}

// Close waits for background runs and releases connections.
func (a *App) Close() {
	a.Runner.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("⚠️  close: %v", err)
		}
	}
}
