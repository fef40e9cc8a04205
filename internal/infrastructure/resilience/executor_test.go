package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDoRetriesRetryableFailure(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}, testLogger())

	errFlaky := errors.New("connection reset")
	attempts := 0
	err := exec.Do(context.Background(), "queue.publish", func(err error) Verdict {
		return Verdict{Retryable: errors.Is(err, errFlaky), CountFailure: true}
	}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoFailsFastOnPermanentError(t *testing.T) {
	exec := NewExecutor(Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}, testLogger())

	errBad := errors.New("malformed request")
	attempts := 0
	err := exec.Do(context.Background(), "queue.publish", func(error) Verdict {
		return Verdict{Retryable: false, CountFailure: false}
	}, func(context.Context) error {
		attempts++
		return errBad
	})
	if !errors.Is(err, errBad) {
		t.Fatalf("err = %v, want %v", err, errBad)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestModelCallPolicyNeverRetries(t *testing.T) {
	exec := NewExecutor(ModelCallPolicy(), testLogger())

	errDown := errors.New("model host down")
	attempts := 0
	err := exec.Do(context.Background(), "ollama.invoke", func(error) Verdict {
		return Verdict{Retryable: true, CountFailure: true}
	}, func(context.Context) error {
		attempts++
		return errDown
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, single attempt policy must not retry", attempts)
	}
}

func TestDoOpensBreakerPerTarget(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts:         1,
		InitialBackoff:      time.Millisecond,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenFor:      50 * time.Millisecond,
		BreakerProbeCalls:   1,
	}, testLogger())

	errDown := errors.New("down")
	classify := func(error) Verdict { return Verdict{CountFailure: true} }

	for i := 0; i < 2; i++ {
		if err := exec.Do(context.Background(), "ollama.invoke", classify, func(context.Context) error {
			return errDown
		}); !errors.Is(err, errDown) {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	err := exec.Do(context.Background(), "ollama.invoke", classify, func(context.Context) error {
		t.Fatal("open breaker must not invoke the call")
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatal("IsCircuitOpen must recognize the open state")
	}

	// Other targets keep their own breakers.
	if err := exec.Do(context.Background(), "queue.publish", classify, func(context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("healthy target affected: %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	exec := NewExecutor(Policy{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errFlaky := errors.New("flaky")
	attempts := 0
	err := exec.Do(ctx, "queue.publish", func(error) Verdict {
		return Verdict{Retryable: true, CountFailure: false}
	}, func(context.Context) error {
		attempts++
		cancel()
		return errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, canceled context must stop retries", attempts)
	}
}
