// Package scheduler drives the polling loop that turns wallet activity
// into delivered alerts.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/alert"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dedup"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dispatch"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/observability"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// State describes what the scheduler is currently doing.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateAborted State = "aborted"
)

// Source produces new transactions for the watched wallets.
type Source interface {
	FetchAll(ctx context.Context, wallets []string) []models.Transaction
}

// Dispatcher fans a formatted payload out to subscribers.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload string) []dispatch.Outcome
}

// CycleReport summarizes the most recent completed cycle.
type CycleReport struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
	Transactions int       `json:"transactions"`
	Delivered    int       `json:"delivered"`
	Failed       int       `json:"failed"`
}

// Config holds scheduler settings.
type Config struct {
	Interval time.Duration
	Wallets  []string
}

// Scheduler runs the periodic fetch, format, dispatch pipeline.
type Scheduler struct {
	cfg        Config
	source     Source
	formatter  *alert.Formatter
	dispatcher Dispatcher
	cache      *dedup.Cache
	metrics    *observability.Metrics
	log        logger.Logger

	mu    sync.RWMutex
	state State
	last  CycleReport
}

// New creates a scheduler. metrics may be nil.
func New(cfg Config, source Source, formatter *alert.Formatter, dispatcher Dispatcher, cache *dedup.Cache, metrics *observability.Metrics, log logger.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	return &Scheduler{
		cfg:        cfg,
		source:     source,
		formatter:  formatter,
		dispatcher: dispatcher,
		cache:      cache,
		metrics:    metrics,
		log:        log.With(logger.F("component", "scheduler")),
		state:      StateIdle,
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastCycle returns a report of the most recent completed cycle.
func (s *Scheduler) LastCycle() CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run executes cycles on the configured interval until ctx is cancelled.
// The first cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started",
		logger.F("interval", s.cfg.Interval.String()),
		logger.F("wallets", len(s.cfg.Wallets)))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.setState(StateAborted)
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle executes a single polling cycle. A panic inside the pipeline
// is recovered and logged so the next tick is unaffected.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	started := time.Now()
	log := s.log.With(logger.F("cycle", cycleID))

	s.setState(StateRunning)
	defer s.setState(StateIdle)

	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panicked", logger.F("panic", r))
			if s.metrics != nil {
				s.metrics.CyclesTotal.WithLabelValues("panic").Inc()
			}
		}
	}()

	swept := s.cache.Sweep()
	if swept > 0 {
		log.Debug("swept expired dedup entries", logger.F("removed", swept))
	}

	txs := s.source.FetchAll(ctx, s.cfg.Wallets)

	report := CycleReport{
		ID:           cycleID,
		StartedAt:    started,
		Transactions: len(txs),
	}

	if len(txs) > 0 {
		payload := s.formatter.Format(txs)
		outcomes := s.dispatcher.Dispatch(ctx, payload)
		for _, o := range outcomes {
			if o.Err != nil {
				report.Failed++
			} else {
				report.Delivered++
			}
		}

		// Signatures are marked as seen only after dispatch has settled
		// so a crash mid-cycle re-alerts rather than silently drops.
		for _, tx := range txs {
			s.cache.Set(tx.Signature, tx.Wallet)
		}

		log.Info("cycle delivered alerts",
			logger.F("transactions", len(txs)),
			logger.F("delivered", report.Delivered),
			logger.F("failed", report.Failed))
	} else {
		log.Debug("cycle found no new activity")
	}

	report.Duration = time.Since(started).String()

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.record(report, swept)
}

func (s *Scheduler) record(report CycleReport, swept int) {
	if s.metrics == nil {
		return
	}

	s.metrics.CyclesTotal.WithLabelValues("ok").Inc()
	s.metrics.CycleDuration.Observe(time.Since(report.StartedAt).Seconds())
	s.metrics.TransactionsFetched.Add(float64(report.Transactions))
	s.metrics.CacheEntriesSwept.Add(float64(swept))
	s.metrics.DedupCacheSize.Set(float64(s.cache.Size()))
	if report.Transactions > 0 {
		s.metrics.TransactionsAlerted.Add(float64(report.Transactions))
		s.metrics.DeliveriesTotal.WithLabelValues("ok").Add(float64(report.Delivered))
		s.metrics.DeliveriesTotal.WithLabelValues("failed").Add(float64(report.Failed))
		s.metrics.SubscriberCount.Set(float64(report.Delivered + report.Failed))
	}
}
