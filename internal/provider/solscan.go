package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

const defaultSolscanBaseURL = "https://public-api.solscan.io"

// SolscanConfig holds Solscan provider configuration
type SolscanConfig struct {
	APIToken string
	BaseURL  string
	Limit    int
	Timeout  time.Duration
}

// Solscan queries the Solscan account-transactions API. Used as a fallback
// when the primary provider fails or returns nothing; its records are
// coarser (lamport totals and instruction type tags only).
type Solscan struct {
	cfg    SolscanConfig
	client *http.Client
	log    logger.Logger
}

// NewSolscan creates the Solscan provider
func NewSolscan(cfg SolscanConfig, log logger.Logger) *Solscan {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSolscanBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Solscan{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With(logger.F("component", "provider"), logger.F("provider", "solscan")),
	}
}

// Name identifies this provider in logs and source tags
func (s *Solscan) Name() string { return "solscan" }

// solscanTransaction is the account-transactions response shape
type solscanTransaction struct {
	TxHash            string   `json:"txHash"`
	Slot              int64    `json:"slot"`
	BlockTime         int64    `json:"blockTime"`
	Status            string   `json:"status"`
	Lamport           int64    `json:"lamport"`
	Signer            []string `json:"signer"`
	ParsedInstruction []struct {
		ProgramID string `json:"programId"`
		Program   string `json:"program"`
		Type      string `json:"type"`
	} `json:"parsedInstruction"`
}

// Fetch returns the wallet's recent transactions, newest first
func (s *Solscan) Fetch(ctx context.Context, wallet string) ([]models.Transaction, error) {
	endpoint := fmt.Sprintf("%s/account/transactions?account=%s&limit=%d",
		s.cfg.BaseURL, url.QueryEscape(wallet), s.cfg.Limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.cfg.APIToken != "" {
		req.Header.Set("token", s.cfg.APIToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", retry.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, statusErr(s.Name(), resp.StatusCode)
	}

	var raw []solscanTransaction
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	txs := make([]models.Transaction, 0, len(raw))
	for _, r := range raw {
		if r.TxHash == "" {
			continue
		}
		txs = append(txs, s.normalize(wallet, r))
	}

	s.log.Debug("fetched transactions",
		logger.F("wallet", wallet),
		logger.F("count", len(txs)),
	)
	return txs, nil
}

// normalize maps one Solscan record onto the canonical record
func (s *Solscan) normalize(wallet string, r solscanTransaction) models.Transaction {
	var ts time.Time
	if r.BlockTime > 0 {
		ts = time.Unix(r.BlockTime, 0)
	}

	tx := models.NewTransaction(wallet, r.TxHash, solscanKind(r), ts)
	tx.SourceTag = s.Name()
	if r.Status != "" {
		tx.Status = r.Status
	}
	if r.Lamport > 0 {
		tx.SetAmount(float64(r.Lamport) / lamportsPerSol)
	}
	if len(r.Signer) > 0 {
		tx.From = r.Signer[0]
	}
	return tx
}

// solscanKind inspects the parsed instruction tags to classify the record
func solscanKind(r solscanTransaction) models.TxKind {
	for _, ins := range r.ParsedInstruction {
		switch ins.Type {
		case "sol-transfer", "spl-transfer", "transfer", "transferChecked":
			return models.TxKindTransfer
		case "swap", "raydium-swap":
			return models.TxKindSwap
		case "mintTo", "buy":
			return models.TxKindTokenBuy
		}
	}
	return models.TxKindUnknown
}
