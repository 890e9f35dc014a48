// Package notify delivers relay messages to chat channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nahidhasan98/review-relay/internal/config"
	"github.com/nahidhasan98/review-relay/internal/format"
	"github.com/nahidhasan98/review-relay/internal/logger"
)

// Notifier sends text to a chat identified by a numeric chat id
type Notifier interface {
	// Send delivers text, already rendered with Formatter, to chatID
	Send(ctx context.Context, chatID int64, text string) error

	// Formatter returns the markup renderer for this channel
	Formatter() format.Formatter

	// Name identifies the backend in logs and health output
	Name() string

	// Connected reports whether the backend can currently deliver
	Connected() bool
}

// New creates the notifier selected in cfg. The WhatsApp notifier still
// needs Start before it can deliver.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Notifier, error) {
	switch cfg.Notifier.Backend {
	case config.NotifierTelegram:
		return NewTelegramNotifier(cfg.Telegram, log), nil
	case config.NotifierWhatsApp:
		return NewWhatsAppNotifier(ctx, cfg.WhatsApp, log)
	default:
		return nil, fmt.Errorf("unknown notifier backend: %q", cfg.Notifier.Backend)
	}
}

// SplitMessage cuts text into parts of at most limit characters, preferring
// line boundaries. Lines longer than limit are cut where they reach it.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if part := strings.TrimRight(current.String(), "\n"); part != "" {
			parts = append(parts, part)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > limit {
			flush()
		}

		for lineLen > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}

		current.WriteString(line)
		currentLen += lineLen
	}
	flush()

	return parts
}
