package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/format"
	"github.com/nahidhasan98/review-relay/internal/logger"
)

// TelegramMessageLimit is the longest text sendMessage accepts
const TelegramMessageLimit = 4096

// TelegramNotifier sends messages through the Telegram Bot API
type TelegramNotifier struct {
	httpClient *http.Client
	apiURL     string
	token      string
	log        *logger.Logger
}

// NewTelegramNotifier creates a notifier for the bot in cfg
func NewTelegramNotifier(cfg config.TelegramConfig, log *logger.Logger) *TelegramNotifier {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		token:      cfg.BotToken,
		log:        log,
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send implements Notifier. Long texts are sent as several messages.
func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, text string) error {
	parts := SplitHTML(text, TelegramMessageLimit)
	for i, part := range parts {
		if err := t.sendMessage(ctx, chatID, part); err != nil {
			if len(parts) > 1 {
				return fmt.Errorf("part %d of %d: %w", i+1, len(parts), err)
			}
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL holds the bot token, keep it out of the error
		return fmt.Errorf("telegram request failed: %w", redactToken(err, t.token))
	}
	defer resp.Body.Close()

	var decoded sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("telegram returned status %d with undecodable body: %w", resp.StatusCode, err)
	}

	if !decoded.OK {
		description := decoded.Description
		if description == "" {
			description = "Unknown error"
		}
		return fmt.Errorf("telegram error %d: %s", decoded.ErrorCode, description)
	}

	t.log.Infof("Message sent to chat %d (message id %d)", chatID, decoded.Result.MessageID)
	return nil
}

// Formatter implements Notifier
func (t *TelegramNotifier) Formatter() format.Formatter {
	return format.HTMLFormatter{}
}

// Name implements Notifier
func (t *TelegramNotifier) Name() string {
	return config.NotifierTelegram
}

// Connected implements Notifier. The Bot API is stateless.
func (t *TelegramNotifier) Connected() bool {
	return true
}

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
