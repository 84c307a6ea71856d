package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/limiter"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// RPC error codes that signal the node is shedding load
const (
	rpcCodeNodeBehind     = -32005
	rpcCodeTooManyRequest = 429
)

// RPCConfig holds chain-RPC provider configuration
type RPCConfig struct {
	Endpoints      []string
	SignatureLimit int
	Timeout        time.Duration
}

// RPC queries a Solana JSON-RPC endpoint directly: list recent signatures
// for the wallet, then fetch each transaction by signature. Multiple
// equivalent endpoint URLs rotate on throttling.
type RPC struct {
	cfg       RPCConfig
	endpoints *retry.Endpoints
	client    *http.Client
	limiter   *limiter.Limiter
	log       logger.Logger
	requestID atomic.Uint64
}

// NewRPC creates the chain-RPC provider. The limiter paces the per-signature
// getTransaction calls; the first call of each fetch is paced by the caller.
func NewRPC(cfg RPCConfig, lim *limiter.Limiter, log logger.Logger) *RPC {
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &RPC{
		cfg:       cfg,
		endpoints: retry.NewEndpoints(cfg.Endpoints),
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   lim,
		log:       log.With(logger.F("component", "provider"), logger.F("provider", "rpc")),
	}
}

// Name identifies this provider in logs and source tags
func (r *RPC) Name() string { return "rpc" }

// Endpoints exposes the rotation cursor to the retry controller
func (r *RPC) Endpoints() *retry.Endpoints { return r.endpoints }

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// signatureInfo is one getSignaturesForAddress entry
type signatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// tokenBalance is one pre/postTokenBalances entry
type tokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmount *float64 `json:"uiAmount"`
		Decimals int      `json:"decimals"`
		Amount   string   `json:"amount"`
	} `json:"uiTokenAmount"`
}

// rpcTransaction is the getTransaction result in jsonParsed encoding
type rpcTransaction struct {
	BlockTime *int64 `json:"blockTime"`
	Slot      int64  `json:"slot"`
	Meta      struct {
		Err               interface{}    `json:"err"`
		PreBalances       []int64        `json:"preBalances"`
		PostBalances      []int64        `json:"postBalances"`
		PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
				Signer bool   `json:"signer"`
			} `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// call performs one JSON-RPC request against the current endpoint
func (r *RPC) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	endpoint := r.endpoints.Current()
	if endpoint == "" {
		return fmt.Errorf("no rpc endpoints configured")
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      r.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", retry.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return statusErr(r.Name(), resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == rpcCodeNodeBehind || rpcResp.Error.Code == rpcCodeTooManyRequest {
			return fmt.Errorf("%w: %v", retry.ErrThrottled, rpcResp.Error)
		}
		return rpcResp.Error
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// signatures lists the wallet's recent transaction signatures
func (r *RPC) signatures(ctx context.Context, wallet string) ([]signatureInfo, error) {
	var sigs []signatureInfo
	params := []interface{}{
		wallet,
		map[string]interface{}{"limit": r.cfg.SignatureLimit},
	}
	if err := r.call(ctx, "getSignaturesForAddress", params, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// transaction fetches one transaction by signature
func (r *RPC) transaction(ctx context.Context, signature string) (*rpcTransaction, error) {
	var tx rpcTransaction
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	if err := r.call(ctx, "getTransaction", params, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Fetch lists recent signatures for the wallet and resolves each one into a
// canonical transaction. A signature whose detail lookup fails is skipped
// rather than failing the whole fetch.
func (r *RPC) Fetch(ctx context.Context, wallet string) ([]models.Transaction, error) {
	sigs, err := r.signatures(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}

	txs := make([]models.Transaction, 0, len(sigs))
	for _, sig := range sigs {
		if sig.Signature == "" {
			continue
		}
		if r.limiter != nil {
			if err := r.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		detail, err := r.transaction(ctx, sig.Signature)
		if err != nil {
			if retry.IsThrottled(err) {
				return nil, err
			}
			r.log.Warn("failed to resolve signature, skipping",
				logger.F("signature", sig.Signature),
				logger.F("error", err),
			)
			continue
		}
		txs = append(txs, r.normalize(wallet, sig, detail))
	}

	r.log.Debug("fetched transactions",
		logger.F("wallet", wallet),
		logger.F("count", len(txs)),
	)
	return txs, nil
}

// normalize maps a resolved transaction onto the canonical record. The
// amount is the wallet's own SOL balance delta, decimal-adjusted.
func (r *RPC) normalize(wallet string, sig signatureInfo, detail *rpcTransaction) models.Transaction {
	var ts time.Time
	if detail.BlockTime != nil {
		ts = time.Unix(*detail.BlockTime, 0)
	} else if sig.BlockTime != nil {
		ts = time.Unix(*sig.BlockTime, 0)
	}

	tx := models.NewTransaction(wallet, sig.Signature, models.TxKindUnknown, ts)
	tx.SourceTag = r.Name()
	if sig.Err != nil || detail.Meta.Err != nil {
		tx.Status = "failed"
	}

	keys := detail.Transaction.Message.AccountKeys
	walletIndex := -1
	for i, k := range keys {
		if k.Pubkey == wallet {
			walletIndex = i
		}
	}
	if len(keys) > 0 {
		tx.From = keys[0].Pubkey
	}

	if walletIndex >= 0 &&
		walletIndex < len(detail.Meta.PreBalances) &&
		walletIndex < len(detail.Meta.PostBalances) {
		delta := detail.Meta.PostBalances[walletIndex] - detail.Meta.PreBalances[walletIndex]
		if delta != 0 {
			tx.Kind = models.TxKindTransfer
			amount := float64(delta) / lamportsPerSol
			if amount < 0 {
				amount = -amount
			}
			tx.SetAmount(amount)
		}
	}
	return tx
}
