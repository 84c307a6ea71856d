package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/limiter"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
)

func newTestController(maxRetries int) *Controller {
	return NewController(
		limiter.New(1000, time.Second),
		Config{
			MaxRetries:  maxRetries,
			BackoffBase: time.Millisecond,
			BackoffCap:  5 * time.Millisecond,
		},
		logger.NewDefault(),
	)
}

func TestSuccessFirstAttempt(t *testing.T) {
	c := newTestController(3)

	calls := 0
	err := c.Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("work called %d times, want 1", calls)
	}
}

func TestThrottledRetriesUntilSuccess(t *testing.T) {
	maxRetries := 3
	c := newTestController(maxRetries)
	rot := NewEndpoints([]string{"https://rpc-a", "https://rpc-b"})

	calls := 0
	err := c.Do(context.Background(), rot, func(ctx context.Context) error {
		calls++
		if calls <= maxRetries {
			return fmt.Errorf("%w: status 429", ErrThrottled)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != maxRetries+1 {
		t.Errorf("work called %d times, want %d", calls, maxRetries+1)
	}
	// One rotation per throttled failure: 3 rotations over 2 endpoints
	// leaves the cursor on the second endpoint
	if got := rot.Current(); got != "https://rpc-b" {
		t.Errorf("endpoint after 3 rotations = %q, want %q", got, "https://rpc-b")
	}
}

func TestThrottledExhaustsRetries(t *testing.T) {
	c := newTestController(2)

	calls := 0
	err := c.Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("%w: status 429", ErrThrottled)
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !IsThrottled(err) {
		t.Errorf("exhausted error should wrap the last throttle: %v", err)
	}
	if calls != 3 {
		t.Errorf("work called %d times, want 3", calls)
	}
}

func TestTransientRetriesWithoutBackoff(t *testing.T) {
	c := newTestController(3)

	calls := 0
	start := time.Now()
	err := c.Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("%w: connection reset", ErrTransient)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("work called %d times, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("transient retry waited %v, expected no backoff delay", elapsed)
	}
}

func TestFatalPropagatesImmediately(t *testing.T) {
	c := newTestController(5)
	fatal := errors.New("bad request")

	calls := 0
	err := c.Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("Do returned %v, want the fatal error", err)
	}
	if calls != 1 {
		t.Errorf("work called %d times, want 1 (no retry budget consumed)", calls)
	}
}

func TestRotationNoopWithSingleEndpoint(t *testing.T) {
	rot := NewEndpoints([]string{"https://only"})
	if got := rot.Rotate(); got != "https://only" {
		t.Errorf("Rotate() = %q, want the single endpoint", got)
	}
	if got := rot.Current(); got != "https://only" {
		t.Errorf("Current() = %q, want the single endpoint", got)
	}
}

func TestEndpointsRoundRobin(t *testing.T) {
	rot := NewEndpoints([]string{"a", "b", "c"})

	want := []string{"b", "c", "a", "b"}
	for i, w := range want {
		if got := rot.Rotate(); got != w {
			t.Errorf("Rotate() call %d = %q, want %q", i+1, got, w)
		}
	}
}

func TestIsTransientClassifiesNetErrors(t *testing.T) {
	var err error = &timeoutErr{}
	if !IsTransient(fmt.Errorf("call failed: %w", err)) {
		t.Error("wrapped net.Error should classify as transient")
	}
	if IsTransient(errors.New("provider rejected payload")) {
		t.Error("plain error should not classify as transient")
	}
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
