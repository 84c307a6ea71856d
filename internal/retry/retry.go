package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/limiter"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
)

var (
	// ErrThrottled marks an upstream rate-limit signal. Recoverable via
	// backoff and endpoint rotation.
	ErrThrottled = errors.New("throttled by upstream")
	// ErrTransient marks a connection-level failure with no response.
	// Recoverable via immediate retry.
	ErrTransient = errors.New("transient network failure")
)

// IsThrottled reports whether err carries an upstream throttling signal
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsTransient reports whether err is a connection-level failure that never
// produced a response. Explicitly marked errors and net errors both qualify.
func IsTransient(err error) bool {
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Config holds retry controller configuration
type Config struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Controller wraps a unit of work with bounded retries. It only
// distinguishes throttled, transient and fatal failures; it carries no
// business semantics and is reused across every outbound call.
type Controller struct {
	limiter *limiter.Limiter
	log     logger.Logger

	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// NewController creates a retry controller gated by the given rate limiter
func NewController(lim *limiter.Limiter, cfg Config, log logger.Logger) *Controller {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 10 * time.Second
	}

	return &Controller{
		limiter:     lim,
		log:         log.With(logger.F("component", "retry")),
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
	}
}

// Rotator advances to the next equivalent endpoint after a throttled
// attempt. With a single endpoint rotation is a no-op and backoff alone
// governs pacing.
type Rotator interface {
	Rotate() string
}

// Do runs work up to MaxRetries+1 times. A rate-limiter token is acquired
// before every attempt. Throttled failures back off exponentially and
// rotate the endpoint; transient failures retry with no extra delay beyond
// the limiter's own pacing; any other failure propagates immediately.
func (c *Controller) Do(ctx context.Context, rot Rotator, work func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		err := work(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case IsThrottled(err):
			delay := c.backoff(attempt)
			c.log.Warn("upstream throttled, backing off",
				logger.F("attempt", attempt+1),
				logger.F("delay", delay),
				logger.F("error", err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if rot != nil {
				next := rot.Rotate()
				if next != "" {
					c.log.Debug("rotated endpoint", logger.F("endpoint", next))
				}
			}
		case IsTransient(err):
			c.log.Warn("transient failure, retrying",
				logger.F("attempt", attempt+1),
				logger.F("error", err),
			)
		default:
			return err
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", c.maxRetries+1, lastErr)
}

// backoff computes min(base * 2^attempt, cap)
func (c *Controller) backoff(attempt int) time.Duration {
	delay := c.backoffBase << uint(attempt)
	if delay > c.backoffCap || delay <= 0 {
		delay = c.backoffCap
	}
	return delay
}
