package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/retry"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

func TestPolicy_Delay(t *testing.T) {
	tests := []struct {
		name     string
		strategy retry.BackoffType
		attempt  int
		expected time.Duration
	}{
		{"no wait before first attempt", retry.BackoffExponential, 0, 0},
		{"fixed", retry.BackoffFixed, 4, 100 * time.Millisecond},
		{"linear", retry.BackoffLinear, 3, 300 * time.Millisecond},
		{"exponential", retry.BackoffExponential, 3, 400 * time.Millisecond},
		{"capped", retry.BackoffExponential, 10, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := retry.Policy{BackoffStrategy: tt.strategy, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}
			assert.Equal(t, tt.expected, p.Delay(tt.attempt))
		})
	}
}

func TestPolicy_JitterStaysInBounds(t *testing.T) {
	p := retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, JitterFactor: 0.5}
	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestExecutor_RetriesUntilSuccess(t *testing.T) {
	var retried []int
	exec := retry.NewExecutor(retry.Policy{MaxRetries: 3, BackoffStrategy: retry.BackoffFixed}).
		OnRetry(func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) })

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestExecutor_GivesUp(t *testing.T) {
	exec := retry.NewExecutor(retry.Policy{MaxRetries: 2})
	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("still down")
	})
	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestExecutor_StopsOnNonRetryable(t *testing.T) {
	exec := retry.NewExecutor(retry.Policy{MaxRetries: 5})
	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonDenied, "permission denied", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := retry.NewExecutor(retry.Policy{MaxRetries: 5, InitialDelay: time.Hour, BackoffStrategy: retry.BackoffFixed})

	err := exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		cancel()
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ReturnsValue(t *testing.T) {
	exec := retry.NewExecutor(retry.Policy{MaxRetries: 1})
	v, err := retry.Do(context.Background(), exec, func(ctx context.Context, attempt int) (string, error) {
		if attempt == 0 {
			return "", errors.New("first try fails")
		}
		return "ready", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.False(t, retry.Retryable(nil))
	assert.True(t, retry.Retryable(errors.New("eof")))
	assert.True(t, retry.Retryable(platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypePersistence, platformerrors.ReasonUnavailable, "down", nil)))
	assert.False(t, retry.Retryable(platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeAuth, "expired", nil)))
}
