// Package bot implements the Telegram command surface of the tracker.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/scheduler"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/subscriber"
)

// Commands routes bot commands to subscriber management and status reporting.
type Commands struct {
	store   subscriber.Store
	sched   *scheduler.Scheduler
	wallets []string
	log     logger.Logger
}

// New creates the command router.
func New(store subscriber.Store, sched *scheduler.Scheduler, wallets []string, log logger.Logger) *Commands {
	return &Commands{
		store:   store,
		sched:   sched,
		wallets: wallets,
		log:     log.With(logger.F("component", "bot")),
	}
}

// Handle dispatches a single command and returns the reply text.
// It satisfies telegram.CommandHandler.
func (c *Commands) Handle(ctx context.Context, chatID int64, command, args string) string {
	switch command {
	case "/start", "/help":
		return c.help()
	case "/subscribe":
		return c.subscribe(ctx, chatID)
	case "/unsubscribe":
		return c.unsubscribe(ctx, chatID)
	case "/status":
		return c.status(ctx)
	case "/wallets":
		return c.walletList()
	default:
		return "Unknown command. Send /help for the command list."
	}
}

func (c *Commands) help() string {
	return strings.Join([]string{
		"*Wallet Tracker*",
		"",
		"/subscribe - receive wallet activity alerts",
		"/unsubscribe - stop receiving alerts",
		"/status - show tracker status",
		"/wallets - list watched wallets",
	}, "\n")
}

func (c *Commands) subscribe(ctx context.Context, chatID int64) string {
	added, err := c.store.Add(ctx, chatID)
	if err != nil {
		c.log.Error("subscribe failed", logger.F("chat_id", chatID), logger.F("error", err))
		return "Something went wrong, try again later."
	}
	if !added {
		return "You are already subscribed."
	}

	c.log.Info("subscriber added", logger.F("chat_id", chatID))
	return "Subscribed. You will receive wallet activity alerts."
}

func (c *Commands) unsubscribe(ctx context.Context, chatID int64) string {
	removed, err := c.store.Remove(ctx, chatID)
	if err != nil {
		c.log.Error("unsubscribe failed", logger.F("chat_id", chatID), logger.F("error", err))
		return "Something went wrong, try again later."
	}
	if !removed {
		return "You were not subscribed."
	}

	c.log.Info("subscriber removed", logger.F("chat_id", chatID))
	return "Unsubscribed. No more alerts will be sent."
}

func (c *Commands) status(ctx context.Context) string {
	count, err := c.store.Count(ctx)
	if err != nil {
		count = -1
	}

	last := c.sched.LastCycle()
	lines := []string{
		"*Tracker Status*",
		fmt.Sprintf("State: %s", c.sched.State()),
		fmt.Sprintf("Watched wallets: %d", len(c.wallets)),
		fmt.Sprintf("Subscribers: %d", count),
	}
	if last.ID != "" {
		lines = append(lines,
			fmt.Sprintf("Last cycle: %s ago, %d new transaction(s)",
				formatAge(last), last.Transactions))
	}

	return strings.Join(lines, "\n")
}

func (c *Commands) walletList() string {
	if len(c.wallets) == 0 {
		return "No wallets are being watched."
	}

	lines := make([]string, 0, len(c.wallets)+1)
	lines = append(lines, "*Watched Wallets*")
	for _, w := range c.wallets {
		lines = append(lines, fmt.Sprintf("`%s`", w))
	}

	return strings.Join(lines, "\n")
}

func formatAge(report scheduler.CycleReport) string {
	age := time.Since(report.StartedAt)
	switch {
	case age.Hours() >= 1:
		return fmt.Sprintf("%.0fh", age.Hours())
	case age.Minutes() >= 1:
		return fmt.Sprintf("%.0fm", age.Minutes())
	default:
		return fmt.Sprintf("%.0fs", age.Seconds())
	}
}
