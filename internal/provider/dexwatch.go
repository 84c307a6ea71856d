package provider

import (
	"context"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// Known swap program IDs
const (
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PumpFun      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	JupiterV6    = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
)

// DefaultSwapPrograms maps the default known swap program ids to the label
// shown in alerts
func DefaultSwapPrograms() map[string]string {
	return map[string]string{
		RaydiumAMMV4: "raydium",
		PumpFun:      "pumpfun",
		JupiterV6:    "jupiter",
	}
}

// DexWatchConfig holds DEX swap detection configuration
type DexWatchConfig struct {
	Programs  map[string]string // program id -> display label
	MinAmount float64           // minimum qualifying token balance increase
}

// DexWatch is the swap-detection variant of the chain-RPC provider. It keeps
// only transactions that touch a known swap program and show a token balance
// increase above the configured minimum for the watched wallet; everything
// else is dropped entirely.
type DexWatch struct {
	rpc       *RPC
	programs  map[string]string
	minAmount float64
	log       logger.Logger
}

// NewDexWatch creates the swap-detection provider on top of a chain-RPC
// client
func NewDexWatch(rpc *RPC, cfg DexWatchConfig, log logger.Logger) *DexWatch {
	programs := cfg.Programs
	if len(programs) == 0 {
		programs = DefaultSwapPrograms()
	}

	return &DexWatch{
		rpc:       rpc,
		programs:  programs,
		minAmount: cfg.MinAmount,
		log:       log.With(logger.F("component", "provider"), logger.F("provider", "dexwatch")),
	}
}

// Name identifies this provider in logs and source tags
func (d *DexWatch) Name() string { return "dexwatch" }

// Endpoints exposes the underlying RPC rotation to the retry controller
func (d *DexWatch) Endpoints() *retry.Endpoints { return d.rpc.Endpoints() }

// Fetch returns the wallet's recent qualifying swap purchases
func (d *DexWatch) Fetch(ctx context.Context, wallet string) ([]models.Transaction, error) {
	sigs, err := d.rpc.signatures(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	for _, sig := range sigs {
		if sig.Signature == "" || sig.Err != nil {
			continue
		}
		if d.rpc.limiter != nil {
			if err := d.rpc.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		detail, err := d.rpc.transaction(ctx, sig.Signature)
		if err != nil {
			if retry.IsThrottled(err) {
				return nil, err
			}
			d.log.Warn("failed to resolve signature, skipping",
				logger.F("signature", sig.Signature),
				logger.F("error", err),
			)
			continue
		}

		if tx, ok := d.detectSwap(wallet, sig, detail); ok {
			txs = append(txs, tx)
		}
	}

	d.log.Debug("swap scan finished",
		logger.F("wallet", wallet),
		logger.F("signatures", len(sigs)),
		logger.F("matches", len(txs)),
	)
	return txs, nil
}

// detectSwap checks one transaction against the known program set and the
// minimum balance increase. Transactions not touching a known program, or
// with no qualifying increase, are dropped rather than merely unflagged.
func (d *DexWatch) detectSwap(wallet string, sig signatureInfo, detail *rpcTransaction) (models.Transaction, bool) {
	label := ""
	for _, key := range detail.Transaction.Message.AccountKeys {
		if l, ok := d.programs[key.Pubkey]; ok {
			label = l
			break
		}
	}
	if label == "" {
		return models.Transaction{}, false
	}

	mint, delta, ok := d.bestIncrease(wallet, detail)
	if !ok {
		return models.Transaction{}, false
	}

	var ts time.Time
	if detail.BlockTime != nil {
		ts = time.Unix(*detail.BlockTime, 0)
	}

	tx := models.NewTransaction(wallet, sig.Signature, models.TxKindTokenBuy, ts)
	tx.SourceTag = label
	tx.TokenMint = mint
	tx.To = wallet
	tx.SetAmount(delta)
	return tx, true
}

// bestIncrease returns the largest token balance increase for the wallet
// across the transaction's pre/post token balances, provided it clears the
// minimum threshold
func (d *DexWatch) bestIncrease(wallet string, detail *rpcTransaction) (string, float64, bool) {
	pre := make(map[string]float64)
	for _, b := range detail.Meta.PreTokenBalances {
		if b.Owner == wallet && b.UITokenAmount.UIAmount != nil {
			pre[b.Mint] = *b.UITokenAmount.UIAmount
		}
	}

	bestMint := ""
	bestDelta := 0.0
	for _, b := range detail.Meta.PostTokenBalances {
		if b.Owner != wallet || b.UITokenAmount.UIAmount == nil {
			continue
		}
		delta := *b.UITokenAmount.UIAmount - pre[b.Mint]
		if delta > bestDelta {
			bestMint = b.Mint
			bestDelta = delta
		}
	}

	if bestMint == "" || bestDelta <= d.minAmount {
		return "", 0, false
	}
	return bestMint, bestDelta, true
}
