// Package retry holds the backoff used when dialing backing services and
// re-establishing live subscriptions. Responder calls are never retried.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffStrategy BackoffType
	JitterFactor    float64 // 0.0-1.0
}

type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffLinear      BackoffType = "linear"
	BackoffExponential BackoffType = "exponential"
)

// ConnectPolicy is used at startup for Postgres and Redis.
func ConnectPolicy() Policy {
	return Policy{
		MaxRetries:      5,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.2,
	}
}

// ResubscribePolicy is used when a live GraphQL subscription drops.
func ResubscribePolicy() Policy {
	return Policy{
		MaxRetries:      8,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        15 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.25,
	}
}

// Delay returns the wait before the given attempt (1-based). Attempt 0 waits nothing.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.BackoffStrategy {
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Retryable reports whether err is worth another attempt. Caller mistakes and
// auth failures never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, t := range []platformerrors.ErrorType{
		platformerrors.ErrorTypeValidation,
		platformerrors.ErrorTypeAuth,
		platformerrors.ErrorTypeUnauthorized,
		platformerrors.ErrorTypeNotFound,
		platformerrors.ErrorTypeConflict,
	} {
		if platformerrors.IsErrorType(err, t) {
			return false
		}
	}
	return !platformerrors.HasReason(err, platformerrors.ReasonDenied) &&
		!platformerrors.HasReason(err, platformerrors.ReasonRejected)
}

// Func is one attempt; attempt starts at 0.
type Func func(ctx context.Context, attempt int) error

// Executor runs a Func under a Policy.
type Executor struct {
	policy  Policy
	onRetry func(attempt int, delay time.Duration, err error)
}

func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// OnRetry registers a hook called before each wait, typically for logging.
func (e *Executor) OnRetry(fn func(attempt int, delay time.Duration, err error)) *Executor {
	e.onRetry = fn
	return e
}

// Execute runs fn until it succeeds, returns a non-retryable error, the
// retries run out, or ctx is done.
func (e *Executor) Execute(ctx context.Context, fn Func) error {
	_, err := Do(ctx, e, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// Do is Execute for functions that produce a value.
func Do[T any](ctx context.Context, e *Executor, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= e.policy.MaxRetries || !Retryable(err) {
			break
		}

		delay := e.policy.Delay(attempt + 1)
		if e.onRetry != nil {
			e.onRetry(attempt+1, delay, err)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return zero, lastErr
}
