package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRetryPolicy_SucceedsAfterThrottle(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: instantSleep}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrRateLimited
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ExhaustsAndReturnsLastError(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: instantSleep}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("HTTP 429 Too Many Requests")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_NonThrottleErrorIsImmediate(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: instantSleep}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("symbol not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_OnRetryFiresPerBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: instantSleep}
	fired := 0
	p.OnRetry = func() { fired++ }
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return ErrRateLimited
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The first attempt is free; only the two backoffs count as retries.
	assert.Equal(t, 2, fired)
}

func TestRetryPolicy_OnRetrySilentOnFirstTrySuccess(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: instantSleep}
	fired := 0
	p.OnRetry = func() { fired++ }
	require.NoError(t, p.Do(context.Background(), func() error { return nil }))
	assert.Zero(t, fired)
}

func TestRetryPolicy_BackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Second}
	err := p.Do(ctx, func() error { return ErrRateLimited })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRateLimited(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.True(t, IsRateLimited(ErrRateLimited))
	assert.True(t, IsRateLimited(errors.New("got 429 from provider")))
	assert.True(t, IsRateLimited(errors.New("Rate Limit exceeded")))
	assert.False(t, IsRateLimited(errors.New("connection refused")))
}
