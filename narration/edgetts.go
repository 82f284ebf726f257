package narration

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"slidestudio/config"
)

// CommandRunner executes name with args and returns its stderr output.
type CommandRunner func(ctx context.Context, name string, args ...string) (stderr []byte, err error)

// EdgeTTS speaks through the edge-tts command line client.
type EdgeTTS struct {
	Binary   string
	Attempts int
	Backoff  time.Duration

	run CommandRunner
}

// NewEdgeTTS creates an engine invoking binary, or "edge-tts" when empty.
func NewEdgeTTS(binary string) *EdgeTTS {
	if binary == "" {
		binary = config.EdgeTTSBinary
	}
	return &EdgeTTS{
		Binary:   binary,
		Attempts: config.NarrationAttempts,
		Backoff:  2 * time.Second,
		run:      execCommand,
	}
}

// WithRunner replaces the process runner.
func (e *EdgeTTS) WithRunner(run CommandRunner) *EdgeTTS {
	e.run = run
	return e
}

// Speak implements Engine. Failed attempts back off linearly.
func (e *EdgeTTS) Speak(ctx context.Context, text string, voice VoiceID, outPath string) error {
	// scripts may start with '-', so the text is bound to its flag
	args := []string{"--voice", string(voice), "--text=" + text, "--write-media", outPath}

	attempts := max(e.Attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		stderr, err := e.run(ctx, e.Binary, args...)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("%s: %w: %s", e.Binary, err, tail(stderr, 300))
		if attempt == attempts {
			break
		}
		log.Printf("⚠️  [narration] attempt %d/%d failed: %v", attempt, attempts, lastErr)

		select {
		case <-time.After(time.Duration(attempt) * e.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
