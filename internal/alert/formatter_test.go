package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func testTx(sig string, amount float64) models.Transaction {
	tx := models.NewTransaction(testWallet, sig, models.TxKindTransfer, time.Now())
	tx.SourceTag = "helius"
	tx.From = "senderAddressWithEnoughLength123"
	tx.To = testWallet
	tx.SetAmount(amount)
	return tx
}

func TestEmptyBatchProducesNoActivityPayload(t *testing.T) {
	f := NewFormatter(1000)
	if got := f.Format(nil); got != NoActivityMessage {
		t.Errorf("Format(nil) = %q, want the no-activity payload", got)
	}
}

func TestThresholdSeverity(t *testing.T) {
	f := NewFormatter(1000)

	low := testTx("sig-low", 50)
	high := testTx("sig-high", 1500)

	if got := f.Severity(low); got != SeverityNormal {
		t.Errorf("Severity(50) = %q, want %q", got, SeverityNormal)
	}
	if got := f.Severity(high); got != SeverityHigh {
		t.Errorf("Severity(1500) = %q, want %q", got, SeverityHigh)
	}

	out := f.Format([]models.Transaction{low, high})
	if strings.Count(out, "🚨") != 1 {
		t.Errorf("exactly one transaction should carry the high-severity marker:\n%s", out)
	}
	if strings.Count(out, "🔔") != 1 {
		t.Errorf("exactly one transaction should carry the normal marker:\n%s", out)
	}
}

func TestMissingAmountOmitsLine(t *testing.T) {
	f := NewFormatter(0)

	tx := models.NewTransaction(testWallet, "sig-1", models.TxKindUnknown, time.Now())
	tx.SourceTag = "rpc"

	out := f.Format([]models.Transaction{tx})
	if strings.Contains(out, "*Amount:*") {
		t.Errorf("amount line should be omitted when no amount is set:\n%s", out)
	}
	if strings.Contains(out, "*From:*") {
		t.Errorf("counterparty line should be omitted when empty:\n%s", out)
	}
}

func TestPayloadCarriesExplorerLinks(t *testing.T) {
	f := NewFormatter(0)

	tx := testTx("sig-abc", 10)
	tx.TokenMint = "So11111111111111111111111111111111111111112"

	out := f.Format([]models.Transaction{tx})
	if !strings.Contains(out, "https://solscan.io/tx/sig-abc") {
		t.Errorf("payload missing transaction deep link:\n%s", out)
	}
	if !strings.Contains(out, "https://solscan.io/token/So11111111111111111111111111111111111111112") {
		t.Errorf("payload missing token deep link:\n%s", out)
	}
}

func TestWalletAddressTruncated(t *testing.T) {
	f := NewFormatter(0)

	out := f.Format([]models.Transaction{testTx("sig-1", 1)})
	if strings.Contains(out, "`"+testWallet+"`") {
		t.Errorf("full wallet address should not appear verbatim:\n%s", out)
	}
	if !strings.Contains(out, testWallet[:6]+"...") {
		t.Errorf("truncated wallet prefix missing:\n%s", out)
	}
}

func TestBatchCountHeader(t *testing.T) {
	f := NewFormatter(0)

	out := f.Format([]models.Transaction{testTx("a", 1), testTx("b", 2), testTx("c", 3)})
	if !strings.Contains(out, "3 new transaction(s)") {
		t.Errorf("batch header missing count:\n%s", out)
	}
}
