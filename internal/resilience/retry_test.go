package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("not rendered"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 2}, func(ctx context.Context) error {
		calls++
		return NewTransientError(eris.New("still failing"))
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_NonTransientStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		return eris.New("bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("canceled mid-flight"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var retries []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		OnRetry:     func(attempt int, err error) { retries = append(retries, attempt) },
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(eris.New("always"))
	})

	assert.Equal(t, []int{1, 2}, retries)
}

func TestWait_GrowsLinearly(t *testing.T) {
	cfg := RetryConfig{ExtraWait: 2 * time.Second}

	assert.Equal(t, time.Duration(0), cfg.Wait(0))
	assert.Equal(t, 2*time.Second, cfg.Wait(1))
	assert.Equal(t, 4*time.Second, cfg.Wait(2))
	assert.Equal(t, 6*time.Second, cfg.Wait(3))
}

func TestSleep_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
