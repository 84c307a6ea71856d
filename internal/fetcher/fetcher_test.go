package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/dedup"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/limiter"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/provider"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// stubProvider yields canned results or errors per wallet
type stubProvider struct {
	name   string
	txs    map[string][]models.Transaction
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, wallet string) ([]models.Transaction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.txs[wallet], nil
}

func tx(wallet, sig string) models.Transaction {
	return models.NewTransaction(wallet, sig, models.TxKindTransfer, time.Now())
}

func newTestFetcher(cache *dedup.Cache, stubs ...*stubProvider) *Fetcher {
	controller := retry.NewController(
		limiter.New(1000, time.Second),
		retry.Config{MaxRetries: 1, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond},
		logger.NewDefault(),
	)

	providers := make([]provider.Provider, len(stubs))
	for i, s := range stubs {
		providers[i] = s
	}
	return New(providers, controller, cache, Config{BatchSize: 2, BatchPause: 10 * time.Millisecond}, logger.NewDefault())
}

func TestFirstProviderWins(t *testing.T) {
	primary := &stubProvider{name: "primary", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-1")},
	}}
	fallback := &stubProvider{name: "fallback", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-other")},
	}}

	f := newTestFetcher(dedup.New(time.Minute), primary, fallback)
	got := f.FetchWallet(context.Background(), "wallet-1")

	if len(got) != 1 || got[0].Signature != "sig-1" {
		t.Fatalf("got %v, want the primary provider's result", got)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback consulted %d times despite non-empty primary result", fallback.calls)
	}
}

func TestEmptyResultFallsThrough(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-fb")},
	}}

	f := newTestFetcher(dedup.New(time.Minute), primary, fallback)
	got := f.FetchWallet(context.Background(), "wallet-1")

	if len(got) != 1 || got[0].Signature != "sig-fb" {
		t.Fatalf("got %v, want the fallback's result", got)
	}
}

func TestProviderFailureFallsThrough(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	fallback := &stubProvider{name: "fallback", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-fb")},
	}}

	f := newTestFetcher(dedup.New(time.Minute), primary, fallback)
	got := f.FetchWallet(context.Background(), "wallet-1")

	if len(got) != 1 || got[0].Signature != "sig-fb" {
		t.Fatalf("got %v, want the fallback's result after primary failure", got)
	}
}

func TestAllProvidersFailingReturnsEmpty(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	fallback := &stubProvider{name: "fallback", err: errors.New("also down")}

	f := newTestFetcher(dedup.New(time.Minute), primary, fallback)
	got := f.FetchWallet(context.Background(), "wallet-1")

	if len(got) != 0 {
		t.Fatalf("got %v, want empty result when every provider fails", got)
	}
}

func TestSeenSignaturesFiltered(t *testing.T) {
	cache := dedup.New(time.Minute)
	cache.Set("sig-seen", struct{}{})

	primary := &stubProvider{name: "primary", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-seen"), tx("wallet-1", "sig-new")},
	}}

	f := newTestFetcher(cache, primary)
	got := f.FetchWallet(context.Background(), "wallet-1")

	if len(got) != 1 || got[0].Signature != "sig-new" {
		t.Fatalf("got %v, want only the unseen signature", got)
	}
}

func TestRefetchWithinExpiryYieldsNothingNew(t *testing.T) {
	cache := dedup.New(time.Minute)
	primary := &stubProvider{name: "primary", txs: map[string][]models.Transaction{
		"wallet-1": {tx("wallet-1", "sig-1"), tx("wallet-1", "sig-2")},
	}}

	f := newTestFetcher(cache, primary)

	first := f.FetchWallet(context.Background(), "wallet-1")
	if len(first) != 2 {
		t.Fatalf("first fetch returned %d, want 2", len(first))
	}
	// Delivered signatures land in the cache (the scheduler's job)
	for _, tx := range first {
		cache.Set(tx.Signature, struct{}{})
	}

	second := f.FetchWallet(context.Background(), "wallet-1")
	if len(second) != 0 {
		t.Fatalf("second fetch within expiry returned %d, want 0", len(second))
	}
}

func TestFetchAllAggregatesAcrossBatches(t *testing.T) {
	primary := &stubProvider{name: "primary", txs: map[string][]models.Transaction{
		"w1": {tx("w1", "sig-1")},
		"w2": {tx("w2", "sig-2")},
		"w3": {tx("w3", "sig-3")},
	}}

	f := newTestFetcher(dedup.New(time.Minute), primary)
	got := f.FetchAll(context.Background(), []string{"w1", "w2", "w3"})

	if len(got) != 3 {
		t.Fatalf("got %d transactions, want 3", len(got))
	}
}

func TestFetchAllOneWalletFailingDoesNotAffectOthers(t *testing.T) {
	primary := &stubProvider{name: "primary", txs: map[string][]models.Transaction{
		"w1": {tx("w1", "sig-1")},
		"w3": {tx("w3", "sig-3")},
	}}

	f := newTestFetcher(dedup.New(time.Minute), primary)
	got := f.FetchAll(context.Background(), []string{"w1", "w2", "w3"})

	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2 from the healthy wallets", len(got))
	}
}
