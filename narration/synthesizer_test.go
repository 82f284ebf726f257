package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeEngine struct {
	mu     sync.Mutex
	calls  []VoiceID
	err    error
	empty  bool
	block  chan struct{}
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeEngine) Speak(ctx context.Context, text string, voice VoiceID, outPath string) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, voice)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	data := []byte("ID3 fake audio for " + text)
	if f.empty {
		data = nil
	}
	return os.WriteFile(outPath, data, 0o644)
}

func TestSynthesizeWritesAudio(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSynthesizer(engine, 1)
	defer s.Close()

	out := filepath.Join(t.TempDir(), "slide_1.mp3")
	path, ok := s.Synthesize(context.Background(), "こんにちは", VoiceKeita, out)
	if !ok || path != out {
		t.Fatalf("Synthesize = (%q, %v); want (%q, true)", path, ok, out)
	}
	if got := engine.calls; len(got) != 1 || got[0] != VoiceKeita {
		t.Fatalf("engine calls = %v", got)
	}
}

func TestSynthesizeReportsFailure(t *testing.T) {
	cases := []struct {
		name   string
		engine *fakeEngine
		script string
	}{
		{"engine error", &fakeEngine{err: errors.New("503 from service")}, "text"},
		{"empty file", &fakeEngine{empty: true}, "text"},
		{"blank script", &fakeEngine{}, "   "},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := NewSynthesizer(c.engine, 1)
			defer s.Close()

			out := filepath.Join(t.TempDir(), "slide_1.mp3")
			path, ok := s.Synthesize(context.Background(), c.script, VoiceNanami, out)
			if ok || path != "" {
				t.Fatalf("Synthesize = (%q, %v); want failure", path, ok)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Fatalf("failed synthesis left %s behind", out)
			}
		})
	}
}

func TestSynthesizeDefaultsVoice(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSynthesizer(engine, 1)
	defer s.Close()

	if _, ok := s.Synthesize(context.Background(), "a", "", filepath.Join(t.TempDir(), "a.mp3")); !ok {
		t.Fatal("Synthesize failed")
	}
	if engine.calls[0] != VoiceNanami {
		t.Fatalf("voice = %q; want %q", engine.calls[0], VoiceNanami)
	}
}

func TestSynthesizeHonoursCancellation(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	s := NewSynthesizer(engine, 1)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan bool)
	go func() {
		_, ok := s.Synthesize(ctx, "slow", VoiceNanami, filepath.Join(t.TempDir(), "slow.mp3"))
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("cancelled synthesis reported success")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Synthesize did not return after cancellation")
	}
}

func TestSynthesizeBoundedByWorkers(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	s := NewSynthesizer(engine, 2)
	defer s.Close()

	dir := t.TempDir()
	var wg sync.WaitGroup
	results := make([]bool, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Synthesize(context.Background(), "x", VoiceNanami, filepath.Join(dir, fmt.Sprintf("a%d.mp3", i)))
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(engine.block)
	wg.Wait()

	if slices.Contains(results, false) {
		t.Fatalf("results = %v; want all true", results)
	}
	if p := engine.peak.Load(); p > 2 {
		t.Fatalf("peak concurrent engine calls = %d; want <= 2", p)
	}
}

func TestSynthesizeAfterClose(t *testing.T) {
	s := NewSynthesizer(&fakeEngine{}, 1)
	s.Close()
	if _, ok := s.Synthesize(context.Background(), "x", VoiceNanami, filepath.Join(t.TempDir(), "x.mp3")); ok {
		t.Fatal("closed synthesizer reported success")
	}
}

func TestResolveVoice(t *testing.T) {
	cases := map[string]VoiceID{
		"":                   VoiceNanami,
		"nanami":             VoiceNanami,
		"Keita":              VoiceKeita,
		"en-US-AriaNeural":   "en-US-AriaNeural",
		" ja-JP-KeitaNeural": VoiceKeita,
	}
	for in, want := range cases {
		if got := ResolveVoice(in); got != want {
			t.Errorf("ResolveVoice(%q) = %q; want %q", in, got, want)
		}
	}
}
