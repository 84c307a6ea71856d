package limiter

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter with a coarse fixed-window refill:
// once the window elapses the bucket resets to full capacity, so callers may
// observe bursts right after a window boundary. It is the single rate-gating
// point in front of every outbound provider call.
type Limiter struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	tokens      int
	windowStart time.Time
}

// New creates a limiter with the given capacity per window
func New(capacity int, window time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		capacity:    capacity,
		window:      window,
		tokens:      capacity,
		windowStart: time.Now(),
	}
}

// Acquire blocks until a token is available, then consumes it. The wait is
// bounded in practice by at most one window. The only error is context
// cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire consumes a token if one is available. On failure it returns
// how long to sleep before the current window resets.
func (l *Limiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.windowStart) >= l.window {
		l.tokens = l.capacity
		l.windowStart = now
	}

	if l.tokens > 0 {
		l.tokens--
		return 0, true
	}

	wait := l.window - now.Sub(l.windowStart)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// Remaining reports the tokens left in the current window, for observability
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.windowStart) >= l.window {
		return l.capacity
	}
	return l.tokens
}
