package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
)

// CommandHandler receives one inbound command and returns the reply text,
// or "" for no reply
type CommandHandler func(ctx context.Context, chatID int64, command, args string) string

// Update is one getUpdates entry
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// Poller long-polls getUpdates and surfaces bot commands as discrete
// events. It runs alongside the scheduler and shares its notifier for
// replies.
type Poller struct {
	notifier *Notifier
	handler  CommandHandler
	log      logger.Logger

	pollTimeout time.Duration
	offset      int64
}

// NewPoller creates an update poller routing commands to handler
func NewPoller(notifier *Notifier, handler CommandHandler, log logger.Logger) *Poller {
	return &Poller{
		notifier:    notifier,
		handler:     handler,
		log:         log.With(logger.F("component", "telegram-poller")),
		pollTimeout: 30 * time.Second,
	}
}

// Run polls until the context is cancelled. Poll failures are logged and
// retried after a short pause; they never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("command poller started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info("command poller stopped")
			return
		default:
		}

		updates, err := p.fetchUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("failed to fetch updates", logger.F("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			p.offset = u.UpdateID + 1
			p.handleUpdate(ctx, u)
		}
	}
}

// fetchUpdates performs one long-poll getUpdates call
func (p *Poller) fetchUpdates(ctx context.Context) ([]Update, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		p.notifier.config.BaseURL, p.notifier.config.BotToken, p.offset, int(p.pollTimeout.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: p.pollTimeout + 10*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !tgResp.OK {
		return nil, fmt.Errorf("telegram API error: %s", tgResp.Description)
	}

	var updates []Update
	if err := json.Unmarshal(tgResp.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse updates: %w", err)
	}
	return updates, nil
}

// handleUpdate routes one update through the command handler and sends the
// reply, if any
func (p *Poller) handleUpdate(ctx context.Context, u Update) {
	if u.Message == nil || !strings.HasPrefix(u.Message.Text, "/") {
		return
	}

	command, args := splitCommand(u.Message.Text)
	chatID := u.Message.Chat.ID

	p.log.Info("command received",
		logger.F("chat_id", chatID),
		logger.F("command", command),
	)

	reply := p.handler(ctx, chatID, command, args)
	if reply == "" {
		return
	}
	if err := p.notifier.SendMarkdown(ctx, chatID, reply); err != nil {
		p.log.Warn("failed to send command reply",
			logger.F("chat_id", chatID),
			logger.F("error", err),
		)
	}
}

// splitCommand separates "/command@bot args" into command and args
func splitCommand(text string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}
