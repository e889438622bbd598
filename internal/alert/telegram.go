package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// telegramAPIBase can be overridden for testing.
	telegramAPIBase = "https://api.telegram.org"
)

// SetTelegramAPIBase overrides the Telegram API host. Intended for tests.
func SetTelegramAPIBase(u string) {
	telegramAPIBase = u
}

// TelegramNotifier posts messages to a Telegram chat via the bot API.
type TelegramNotifier struct {
	token      string
	chatID     string
	httpClient *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message to the configured chat.
func (n *TelegramNotifier) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}
