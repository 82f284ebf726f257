// Package narration turns slide scripts into narration audio files.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Engine performs one text-to-speech call, writing audio to outPath.
type Engine interface {
	Speak(ctx context.Context, text string, voice VoiceID, outPath string) error
}

var errClosed = errors.New("narration: synthesizer closed")

type job struct {
	ctx     context.Context
	text    string
	voice   VoiceID
	outPath string
	result  chan error
}

// Synthesizer runs engine calls on a fixed set of dedicated worker goroutines.
// Synthesize blocks the caller until its worker finishes.
type Synthesizer struct {
	engine Engine
	jobs   chan job
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewSynthesizer starts workers goroutines serving engine.
func NewSynthesizer(engine Engine, workers int) *Synthesizer {
	if workers < 1 {
		workers = 1
	}
	s := &Synthesizer{
		engine: engine,
		jobs:   make(chan job),
		quit:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Synthesizer) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case j := <-s.jobs:
			j.result <- s.speak(j)
		}
	}
}

func (s *Synthesizer) speak(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	if err := s.engine.Speak(j.ctx, j.text, j.voice, j.outPath); err != nil {
		return err
	}
	info, err := os.Stat(j.outPath)
	if err != nil {
		return fmt.Errorf("no audio written: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty audio file %s", j.outPath)
	}
	return nil
}

// Synthesize narrates script with voice into outPath. It reports
// ("", false) on any failure and logs the cause.
func (s *Synthesizer) Synthesize(ctx context.Context, script string, voice VoiceID, outPath string) (string, bool) {
	if strings.TrimSpace(script) == "" {
		log.Printf("⚠️  [narration] empty script for %s", outPath)
		return "", false
	}
	if voice == "" {
		voice = VoiceNanami
	}

	j := job{ctx: ctx, text: script, voice: voice, outPath: outPath, result: make(chan error, 1)}

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		log.Printf("❌ [narration] %s: %v", outPath, ctx.Err())
		return "", false
	case <-s.quit:
		log.Printf("❌ [narration] %s: %v", outPath, errClosed)
		return "", false
	}

	select {
	case err := <-j.result:
		if err != nil {
			log.Printf("❌ [narration] %s (%s): %v", outPath, voice, err)
			os.Remove(outPath)
			return "", false
		}
		return outPath, true
	case <-ctx.Done():
		// the worker's engine call observes the same context
		log.Printf("❌ [narration] %s (%s): %v", outPath, voice, ctx.Err())
		return "", false
	}
}

// Close stops the workers after in-flight calls complete.
func (s *Synthesizer) Close() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
}
