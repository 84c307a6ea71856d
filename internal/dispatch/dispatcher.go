package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/subscriber"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/telegram"
)

// Sender delivers one payload to one recipient
type Sender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Outcome records one subscriber's delivery result
type Outcome struct {
	ChatID  int64
	Err     error
	Retired bool
}

// Dispatcher fans one payload out to every current subscriber. All
// deliveries run to completion regardless of individual failures; a
// "recipient gone" failure retires that subscriber from the set as a side
// effect. Failed deliveries are not replayed.
type Dispatcher struct {
	sender Sender
	store  subscriber.Store
	log    logger.Logger
}

// New creates a dispatcher over the given transport and subscriber set
func New(sender Sender, store subscriber.Store, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		store:  store,
		log:    log.With(logger.F("component", "dispatcher")),
	}
}

// Dispatch delivers payload to every subscriber concurrently and returns
// every outcome once all deliveries have settled
func (d *Dispatcher) Dispatch(ctx context.Context, payload string) []Outcome {
	members, err := d.store.List(ctx)
	if err != nil {
		d.log.Error("failed to list subscribers", logger.F("error", err))
		return nil
	}
	if len(members) == 0 {
		d.log.Debug("no subscribers, skipping dispatch")
		return nil
	}

	outcomes := make([]Outcome, len(members))
	var wg sync.WaitGroup

	for i, chatID := range members {
		wg.Add(1)
		go func(idx int, id int64) {
			defer wg.Done()
			outcomes[idx] = d.deliver(ctx, id, payload)
		}(i, chatID)
	}
	wg.Wait()

	delivered := 0
	for _, o := range outcomes {
		if o.Err == nil {
			delivered++
		}
	}
	d.log.Info("dispatch settled",
		logger.F("subscribers", len(members)),
		logger.F("delivered", delivered),
	)
	return outcomes
}

// deliver sends to one subscriber, retiring it when the transport reports
// the recipient gone
func (d *Dispatcher) deliver(ctx context.Context, chatID int64, payload string) Outcome {
	err := d.sender.SendMarkdown(ctx, chatID, payload)
	if err == nil {
		return Outcome{ChatID: chatID}
	}

	if errors.Is(err, telegram.ErrRecipientGone) {
		if _, remErr := d.store.Remove(ctx, chatID); remErr != nil {
			d.log.Error("failed to retire unreachable subscriber",
				logger.F("chat_id", chatID),
				logger.F("error", remErr),
			)
		} else {
			d.log.Info("retired unreachable subscriber", logger.F("chat_id", chatID))
		}
		return Outcome{ChatID: chatID, Err: err, Retired: true}
	}

	d.log.Warn("delivery failed",
		logger.F("chat_id", chatID),
		logger.F("error", err),
	)
	return Outcome{ChatID: chatID, Err: err}
}
