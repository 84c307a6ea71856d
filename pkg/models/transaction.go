package models

import "time"

// TxKind categorizes a normalized transaction
type TxKind string

const (
	TxKindTransfer TxKind = "transfer"
	TxKindSwap     TxKind = "swap"
	TxKindTokenBuy TxKind = "token_buy"
	TxKindUnknown  TxKind = "unknown"
)

// TimestampLayout is the textual format every normalized timestamp uses
const TimestampLayout = "2006-01-02 15:04:05"

// Transaction is the provider-agnostic representation of one observed
// on-chain event for a watched wallet. Signature is the dedup key and is
// globally unique per underlying chain event: two Transactions with equal
// Signature are the same event regardless of which provider supplied them.
type Transaction struct {
	Wallet      string    `json:"wallet"`
	Signature   string    `json:"signature"`
	Kind        TxKind    `json:"kind"`
	Timestamp   string    `json:"timestamp"`
	Status      string    `json:"status"`
	Amount      *float64  `json:"amount,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	TokenMint   string    `json:"token_mint,omitempty"`
	SourceTag   string    `json:"source_tag"`
	ObservedAt  time.Time `json:"observed_at"`
}

// NewTransaction builds a transaction stamped with the local observation
// time. Timestamp falls back to the observation time when ts is zero.
func NewTransaction(wallet, signature string, kind TxKind, ts time.Time) Transaction {
	now := time.Now()
	eventTime := ts
	if eventTime.IsZero() {
		eventTime = now
	}
	return Transaction{
		Wallet:     wallet,
		Signature:  signature,
		Kind:       kind,
		Timestamp:  eventTime.Format(TimestampLayout),
		Status:     "confirmed",
		ObservedAt: now,
	}
}

// AmountValue returns the amount and whether one is set
func (t *Transaction) AmountValue() (float64, bool) {
	if t.Amount == nil {
		return 0, false
	}
	return *t.Amount, true
}

// SetAmount sets a derived amount on the transaction
func (t *Transaction) SetAmount(v float64) {
	t.Amount = &v
}
