package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dedup"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/observability"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/provider"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// Config holds fetcher configuration
type Config struct {
	BatchSize  int
	BatchPause time.Duration
}

// Fetcher queries providers for each watched wallet in a fixed priority
// order, normalizes their results and filters out already-seen signatures.
// The first provider returning a non-empty result wins; lower-priority
// providers are only consulted when a provider fails entirely or returns
// nothing.
type Fetcher struct {
	providers  []provider.Provider
	controller *retry.Controller
	cache      *dedup.Cache
	metrics    *observability.Metrics
	log        logger.Logger

	batchSize  int
	batchPause time.Duration
}

// New creates a fetcher over the given providers, in priority order
func New(providers []provider.Provider, controller *retry.Controller, cache *dedup.Cache, cfg Config, log logger.Logger) *Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = time.Second
	}

	return &Fetcher{
		providers:  providers,
		controller: controller,
		cache:      cache,
		log:        log.With(logger.F("component", "fetcher")),
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
	}
}

// SetMetrics attaches optional per-provider metrics
func (f *Fetcher) SetMetrics(m *observability.Metrics) {
	f.metrics = m
}

// FetchWallet walks the provider chain for one wallet. All providers failing
// is not fatal: the aggregate failure set is logged and an empty result
// returned, leaving other wallets unaffected.
func (f *Fetcher) FetchWallet(ctx context.Context, wallet string) []models.Transaction {
	var failures []string

	for _, p := range f.providers {
		var rot retry.Rotator
		if r, ok := p.(provider.Rotatable); ok {
			rot = r.Endpoints()
		}

		var result []models.Transaction
		started := time.Now()
		err := f.controller.Do(ctx, rot, func(ctx context.Context) error {
			txs, err := p.Fetch(ctx, wallet)
			if err != nil {
				return err
			}
			result = txs
			return nil
		})
		if f.metrics != nil {
			f.metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(started).Seconds())
		}
		if err != nil {
			if f.metrics != nil {
				f.metrics.ProviderErrors.WithLabelValues(p.Name()).Inc()
			}
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		if len(result) == 0 {
			continue
		}
		return f.filterSeen(result)
	}

	if len(failures) > 0 {
		f.log.Error("every provider failed for wallet",
			logger.F("wallet", wallet),
			logger.F("failures", strings.Join(failures, "; ")),
		)
	}
	return nil
}

// filterSeen drops transactions whose signature is already cached
func (f *Fetcher) filterSeen(txs []models.Transaction) []models.Transaction {
	fresh := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.cache.Has(tx.Signature) {
			continue
		}
		fresh = append(fresh, tx)
	}
	return fresh
}

// FetchAll fetches every watched wallet, chunked into bounded batches with
// bounded concurrency inside each batch and a fixed pause between batches.
// The pause protects against providers that rate-limit over longer windows
// than the limiter's own window.
func (f *Fetcher) FetchAll(ctx context.Context, wallets []string) []models.Transaction {
	var (
		mu  sync.Mutex
		all []models.Transaction
	)

	for start := 0; start < len(wallets); start += f.batchSize {
		end := start + f.batchSize
		if end > len(wallets) {
			end = len(wallets)
		}
		batch := wallets[start:end]

		var wg sync.WaitGroup
		for _, wallet := range batch {
			wg.Add(1)
			go func(w string) {
				defer wg.Done()
				txs := f.FetchWallet(ctx, w)
				if len(txs) == 0 {
					return
				}
				mu.Lock()
				all = append(all, txs...)
				mu.Unlock()
			}(wallet)
		}
		wg.Wait()

		if end < len(wallets) {
			select {
			case <-ctx.Done():
				return all
			case <-time.After(f.batchPause):
			}
		}
	}

	return all
}
