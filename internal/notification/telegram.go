package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Characters the Bot API requires escaped in MarkdownV2 text.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// TelegramNotifier delivers trade alerts to a chat via the Bot API. The relay
// puts the symbol and close reason in the title and the strategy, price and
// PnL fields in the message; Send renders that as a severity marker plus bold
// title with the detail line underneath.
type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and target
// chat, group or channel ID.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// telegramResponse is the Bot API envelope. Description is only set when
// ok=false, e.g. "Bad Request: chat not found".
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	payload, _ := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       formatTelegram(alert),
		"parse_mode": "MarkdownV2",
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !tr.OK {
		return fmt.Errorf("telegram: api error (status %d): %s", resp.StatusCode, tr.Description)
	}
	return nil
}

func formatTelegram(alert Alert) string {
	var b strings.Builder
	b.WriteString(levelMarker(alert.Level))
	b.WriteString(" *")
	b.WriteString(escapeMarkdownV2(alert.Title))
	b.WriteString("*")
	if alert.Message != "" {
		b.WriteString("\n")
		b.WriteString(escapeMarkdownV2(alert.Message))
	}
	return b.String()
}

func levelMarker(level AlertLevel) string {
	switch level {
	case AlertCritical:
		return "🚨"
	case AlertWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func escapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
