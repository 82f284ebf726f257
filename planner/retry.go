package planner

import (
	"context"
	"log"
	"time"
)

// Backoff retries with exponentially growing, capped delays.
type Backoff struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultBackoff waits 4s, 8s, 16s, 32s between five attempts, capped at 60s.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 5, Min: 4 * time.Second, Max: 60 * time.Second, Sleep: sleepCtx}
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Min
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	return min(d, b.Max)
}

// Retry calls fn until it succeeds, returns an error retryable rejects, or
// attempts run out. The last error is returned.
func (b Backoff) Retry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := max(b.Attempts, 1)
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		d := b.Delay(attempt)
		log.Printf("⚠️  [planner] attempt %d/%d rate limited, retrying in %s", attempt, attempts, d)
		if serr := sleep(ctx, d); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
