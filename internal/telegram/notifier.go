package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
)

var (
	// ErrRecipientGone signals the recipient blocked the bot or deleted
	// the chat. The dispatcher retires such subscribers.
	ErrRecipientGone = errors.New("recipient unreachable")
	// ErrSendFailed wraps any other delivery failure
	ErrSendFailed = errors.New("failed to send telegram message")
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Config holds Telegram transport configuration
type Config struct {
	BotToken string
	BaseURL  string
	Timeout  time.Duration
}

// Message is the sendMessage request body
type Message struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// Response is the Telegram API envelope
type Response struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Notifier sends messages to individual recipients. Delivery is single
// attempt: a failed payload is never replayed, the next cycle's fresh data
// is the implicit retry.
type Notifier struct {
	config     Config
	httpClient *http.Client
	log        logger.Logger
}

// NewNotifier creates a Telegram notifier
func NewNotifier(cfg Config, log logger.Logger) *Notifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Notifier{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With(logger.F("component", "telegram")),
	}
}

// Send delivers a plain text message to one chat
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	return n.SendWithParseMode(ctx, chatID, text, "")
}

// SendMarkdown delivers a Markdown-formatted message to one chat, with the
// web page preview disabled so explorer links stay compact
func (n *Notifier) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	return n.SendWithParseMode(ctx, chatID, text, "Markdown")
}

// SendWithParseMode delivers a message with the given parse mode
func (n *Notifier) SendWithParseMode(ctx context.Context, chatID int64, text, parseMode string) error {
	msg := Message{
		ChatID:                strconv.FormatInt(chatID, 10),
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.config.BaseURL, n.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !tgResp.OK {
		if tgResp.ErrorCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", ErrRecipientGone, tgResp.Description)
		}
		n.log.Error("telegram API error",
			logger.F("chat_id", chatID),
			logger.F("error_code", tgResp.ErrorCode),
			logger.F("description", tgResp.Description),
		)
		return fmt.Errorf("%w: %s", ErrSendFailed, tgResp.Description)
	}

	n.log.Debug("message sent", logger.F("chat_id", chatID))
	return nil
}
