package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/retry"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/pkg/models"
)

// Provider is one external data source queried for wallet activity. Each
// implementation owns its response shape and normalizes it into canonical
// transactions; callers never see provider-native records.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, wallet string) ([]models.Transaction, error)
}

// Rotatable is implemented by providers that hold multiple equivalent
// endpoints. The retry controller rotates them on throttling.
type Rotatable interface {
	Endpoints() *retry.Endpoints
}

// statusErr maps an HTTP response status to the retry taxonomy: 429 and 503
// are throttling signals, everything else non-2xx is fatal for the call.
func statusErr(name string, status int) error {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s returned status %d", retry.ErrThrottled, name, status)
	default:
		return fmt.Errorf("%s returned status %d", name, status)
	}
}

const lamportsPerSol = 1e9
