package models

import (
	"testing"
	"time"
)

func TestNewTransactionFormatsTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tx := NewTransaction("wallet-a", "sig-1", TxKindTransfer, ts)

	if tx.Timestamp != "2026-03-14 09:26:53" {
		t.Errorf("timestamp = %q, want formatted event time", tx.Timestamp)
	}
	if tx.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", tx.Status)
	}
	if tx.ObservedAt.IsZero() {
		t.Error("observed_at should be stamped")
	}
}

func TestNewTransactionZeroTimeFallsBack(t *testing.T) {
	tx := NewTransaction("wallet-a", "sig-2", TxKindSwap, time.Time{})

	parsed, err := time.ParseInLocation(TimestampLayout, tx.Timestamp, time.Local)
	if err != nil {
		t.Fatalf("timestamp %q does not parse: %v", tx.Timestamp, err)
	}
	if time.Since(parsed) > time.Minute {
		t.Errorf("fallback timestamp %q is not near now", tx.Timestamp)
	}
}

func TestAmountValue(t *testing.T) {
	tx := NewTransaction("wallet-a", "sig-3", TxKindUnknown, time.Now())

	if _, ok := tx.AmountValue(); ok {
		t.Error("fresh transaction should have no amount")
	}

	tx.SetAmount(12.5)
	got, ok := tx.AmountValue()
	if !ok || got != 12.5 {
		t.Errorf("amount = %v/%v, want 12.5/true", got, ok)
	}
}
