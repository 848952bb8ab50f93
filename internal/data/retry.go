package data

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy retries rate-limited calls with exponential backoff plus a
// small jitter. Non-throttle errors are returned immediately; the backoff
// sleep is a cancellation point.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	// OnRetry, when set, fires once per backoff attempt, before the
	// sleep. Callers hang telemetry counters off it.
	OnRetry func()

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is the schedule the scanner uses: attempts at
// roughly 1s, 2s, 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Do runs fn, retrying on rate-limit signatures until attempts are
// exhausted. The last error is returned when retries run out.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry()
			}
			delay := p.BaseDelay << (attempt - 1)
			if p.MaxJitter > 0 {
				delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
			}
			if serr := sleep(ctx, delay); serr != nil {
				return serr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
