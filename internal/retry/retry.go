// Package retry implements a bounded exponential-backoff retry policy for
// remote calls. It knows nothing about what the call does; a classifier
// decides which failures are worth retrying.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alonegg/mistral-ocr-tool/internal/logger"
)

// ExhaustedError reports that the attempt budget ran out. It carries the
// number of attempts made and unwraps to the last underlying error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("remote call failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Policy configures one retry-guarded call.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	// Must be at least 1.
	MaxAttempts int
	// InitialDelay is waited before the first retry; each further retry
	// doubles it. No jitter, no cap: the budget is the only bound.
	InitialDelay time.Duration
	// IsTransient classifies failures. A failure it rejects is permanent
	// and returned immediately without consuming further attempts.
	IsTransient func(error) bool

	// Sleep is the backoff wait, overridable in tests. The default
	// honors context cancellation during the wait.
	Sleep func(context.Context, time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do invokes fn, retrying transient failures with exponential backoff
// until it succeeds or the attempt budget is exhausted. Permanent
// failures cost exactly one attempt. The retry delay before attempt k
// (1-indexed, k > 1) is InitialDelay * 2^(k-2).
func Do[T any](ctx context.Context, policy Policy, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry: max attempts must be at least 1, got %d", policy.MaxAttempts)
	}
	isTransient := policy.IsTransient
	if isTransient == nil {
		isTransient = func(error) bool { return true }
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Info("Retrying in %v (attempt %d/%d)", delay, attempt, policy.MaxAttempts)
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
			delay *= 2
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}
		lastErr = err

		// Classify before spending any more of the budget: permanent
		// failures and cancellations are surfaced as-is.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if !isTransient(err) {
			return zero, err
		}
		log.Warn("Transient failure on attempt %d/%d: %v", attempt, policy.MaxAttempts, err)
	}

	return zero, &ExhaustedError{Attempts: policy.MaxAttempts, Last: lastErr}
}
