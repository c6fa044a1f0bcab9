package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Telegram bot API.
type Telegram struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

var _ Channel = (*Telegram)(nil)

// NewTelegram creates a Telegram channel for the given bot token and chat.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the channel name.
func (t *Telegram) Name() string {
	return "telegram"
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send posts the message via the bot API sendMessage method.
func (t *Telegram) Send(ctx context.Context, msg model.Message) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram token and chat_id are required")
	}

	body, err := json.Marshal(telegramRequest{
		ChatID:    t.chatID,
		Text:      BuildTelegramText(msg),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Telegram notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, detail)
	}

	slog.Debug("Sent Telegram notification", "title", msg.Title, "severity", msg.Severity)
	return nil
}
