package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

const defaultHeliusBaseURL = "https://api.helius.xyz"

// HeliusConfig holds Helius provider configuration
type HeliusConfig struct {
	APIKey  string
	BaseURL string
	Limit   int
	Timeout time.Duration
}

// Helius queries the Helius enhanced-transactions API. It is the primary
// provider: its records arrive pre-parsed with decimal-adjusted token
// amounts.
type Helius struct {
	cfg    HeliusConfig
	client *http.Client
	log    logger.Logger
}

// NewHelius creates the Helius provider
func NewHelius(cfg HeliusConfig, log logger.Logger) *Helius {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHeliusBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Helius{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With(logger.F("component", "provider"), logger.F("provider", "helius")),
	}
}

// Name identifies this provider in logs and source tags
func (h *Helius) Name() string { return "helius" }

// heliusTransaction is the enhanced-transaction response shape
type heliusTransaction struct {
	Signature        string `json:"signature"`
	Type             string `json:"type"`
	Source           string `json:"source"`
	Timestamp        int64  `json:"timestamp"`
	TransactionError interface{} `json:"transactionError"`
	TokenTransfers   []struct {
		FromUserAccount string  `json:"fromUserAccount"`
		ToUserAccount   string  `json:"toUserAccount"`
		Mint            string  `json:"mint"`
		TokenAmount     float64 `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	NativeTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"`
	} `json:"nativeTransfers"`
}

// Fetch returns the wallet's recent transactions, newest first
func (h *Helius) Fetch(ctx context.Context, wallet string) ([]models.Transaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s&limit=%d",
		h.cfg.BaseURL, url.PathEscape(wallet), url.QueryEscape(h.cfg.APIKey), h.cfg.Limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", retry.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, statusErr(h.Name(), resp.StatusCode)
	}

	var raw []heliusTransaction
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	txs := make([]models.Transaction, 0, len(raw))
	for _, r := range raw {
		if r.Signature == "" {
			continue
		}
		txs = append(txs, h.normalize(wallet, r))
	}

	h.log.Debug("fetched transactions",
		logger.F("wallet", wallet),
		logger.F("count", len(txs)),
	)
	return txs, nil
}

// normalize maps one enhanced transaction onto the canonical record
func (h *Helius) normalize(wallet string, r heliusTransaction) models.Transaction {
	tx := models.NewTransaction(wallet, r.Signature, heliusKind(r.Type), time.Unix(r.Timestamp, 0))
	tx.SourceTag = h.Name()
	if r.Source != "" {
		tx.SourceTag = strings.ToLower(r.Source)
	}
	if r.TransactionError != nil {
		tx.Status = "failed"
	}

	// Prefer token transfers, they carry decimal-adjusted amounts and the
	// mint identity
	if len(r.TokenTransfers) > 0 {
		t := r.TokenTransfers[0]
		tx.SetAmount(t.TokenAmount)
		tx.From = t.FromUserAccount
		tx.To = t.ToUserAccount
		tx.TokenMint = t.Mint
		return tx
	}

	if len(r.NativeTransfers) > 0 {
		t := r.NativeTransfers[0]
		tx.SetAmount(float64(t.Amount) / lamportsPerSol)
		tx.From = t.FromUserAccount
		tx.To = t.ToUserAccount
	}
	return tx
}

// heliusKind maps the enhanced type tag onto the canonical kind
func heliusKind(t string) models.TxKind {
	switch strings.ToUpper(t) {
	case "SWAP":
		return models.TxKindSwap
	case "TRANSFER":
		return models.TxKindTransfer
	case "TOKEN_MINT", "BUY":
		return models.TxKindTokenBuy
	default:
		return models.TxKindUnknown
	}
}
