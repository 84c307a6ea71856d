package alert

import (
	"fmt"
	"strings"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// Severity is the alert class of one transaction
type Severity string

const (
	SeverityNormal Severity = "normal"
	SeverityHigh   Severity = "high"
)

// NoActivityMessage is the payload produced for an empty batch
const NoActivityMessage = "💤 No new wallet activity."

// Formatter renders a batch of canonical transactions into one Markdown
// delivery payload. It has no side effects and no failure modes: malformed
// optional fields degrade by omitting their line.
type Formatter struct {
	threshold float64
}

// NewFormatter creates a formatter; amounts at or above threshold get the
// high-severity alert class
func NewFormatter(threshold float64) *Formatter {
	return &Formatter{threshold: threshold}
}

// Severity classifies one transaction by its amount against the threshold
func (f *Formatter) Severity(tx models.Transaction) Severity {
	if amt, ok := tx.AmountValue(); ok && f.threshold > 0 && amt >= f.threshold {
		return SeverityHigh
	}
	return SeverityNormal
}

// Format renders the batch into one payload. An empty batch produces the
// "no new activity" payload.
func (f *Formatter) Format(txs []models.Transaction) string {
	if len(txs) == 0 {
		return NoActivityMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📡 *Wallet Activity* — %d new transaction(s)\n", len(txs))

	for _, tx := range txs {
		b.WriteString("\n")
		b.WriteString(f.formatOne(tx))
	}
	return b.String()
}

// formatOne renders a single transaction block
func (f *Formatter) formatOne(tx models.Transaction) string {
	var b strings.Builder

	emoji := "🔔"
	if f.Severity(tx) == SeverityHigh {
		emoji = "🚨"
	}

	fmt.Fprintf(&b, "%s *%s* via %s\n", emoji, kindLabel(tx.Kind), tx.SourceTag)
	fmt.Fprintf(&b, "*Wallet:* `%s`\n", truncateAddress(tx.Wallet))
	fmt.Fprintf(&b, "*Time:* %s\n", tx.Timestamp)
	if tx.Status != "" {
		fmt.Fprintf(&b, "*Status:* %s\n", tx.Status)
	}
	if amt, ok := tx.AmountValue(); ok {
		fmt.Fprintf(&b, "*Amount:* %s\n", formatAmount(amt))
	}
	if tx.From != "" {
		fmt.Fprintf(&b, "*From:* `%s`\n", truncateAddress(tx.From))
	}
	if tx.To != "" {
		fmt.Fprintf(&b, "*To:* `%s`\n", truncateAddress(tx.To))
	}
	if tx.TokenMint != "" {
		fmt.Fprintf(&b, "*Token:* [%s](https://solscan.io/token/%s)\n", truncateAddress(tx.TokenMint), tx.TokenMint)
	}
	fmt.Fprintf(&b, "[View on Solscan](https://solscan.io/tx/%s)\n", tx.Signature)

	return b.String()
}

// kindLabel maps a kind onto its display label
func kindLabel(k models.TxKind) string {
	switch k {
	case models.TxKindTransfer:
		return "Transfer"
	case models.TxKindSwap:
		return "Swap"
	case models.TxKindTokenBuy:
		return "Token Purchase"
	default:
		return "Activity"
	}
}

// truncateAddress obfuscates an address for compact display
func truncateAddress(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// formatAmount picks a precision appropriate to the magnitude
func formatAmount(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	case v >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}
