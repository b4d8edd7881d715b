package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alonegg/mistral-ocr-tool/internal/logger"
)

var errPermanent = errors.New("permanent failure")
var errTransient = errors.New("transient failure")

func classify(err error) bool {
	return errors.Is(err, errTransient)
}

// recordingSleep collects backoff delays instead of waiting.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, IsTransient: classify, Sleep: recordingSleep(&delays)}

	calls := 0
	result, err := Do(context.Background(), policy, logger.NewNoOpLogger(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result != "ok" || calls != 1 {
		t.Errorf("result = %q after %d calls, want ok after 1", result, calls)
	}
	if len(delays) != 0 {
		t.Errorf("observed %d backoff waits, want 0", len(delays))
	}
}

func TestDoBackoffSchedule(t *testing.T) {
	// Two transient failures then success with D=2s, M=3: exactly three
	// attempts with waits of 2s then 4s.
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, IsTransient: classify, Sleep: recordingSleep(&delays)}

	calls := 0
	result, err := Do(context.Background(), policy, logger.NewNoOpLogger(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, IsTransient: classify, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := Do(context.Background(), policy, logger.NewNoOpLogger(), func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("error does not unwrap to the last underlying failure: %v", err)
	}
}

func TestDoPermanentFailureSingleAttempt(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 5, InitialDelay: time.Second, IsTransient: classify, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := Do(context.Background(), policy, logger.NewNoOpLogger(), func(context.Context) (int, error) {
		calls++
		return 0, errPermanent
	})
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 for a permanent failure", calls)
	}
	if !errors.Is(err, errPermanent) {
		t.Errorf("Do() error = %v, want the permanent failure itself", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("permanent failure must not be wrapped as budget exhaustion")
	}
	if len(delays) != 0 {
		t.Errorf("observed %d backoff waits, want 0", len(delays))
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 3, InitialDelay: 10 * time.Second, IsTransient: classify}

	calls := 0
	start := time.Now()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, policy, logger.NewNoOpLogger(), func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation interrupts the wait)", calls)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation during backoff took %v, wait was not interrupted", elapsed)
	}
}

func TestDoContextErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Second, IsTransient: func(error) bool { return true }, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := Do(context.Background(), policy, logger.NewNoOpLogger(), func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want context.DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoInvalidBudget(t *testing.T) {
	_, err := Do(context.Background(), Policy{MaxAttempts: 0}, logger.NewNoOpLogger(), func(context.Context) (int, error) {
		t.Error("fn must not be called with an invalid budget")
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected error for zero attempt budget")
	}
}
