package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Slack sends messages to a Slack (or compatible) incoming webhook.
type Slack struct {
	webhookURL string
	httpClient *http.Client
}

var _ Channel = (*Slack)(nil)

// NewSlack creates a Slack channel for the given webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the channel name.
func (s *Slack) Name() string {
	return "slack"
}

// Send posts the message to the webhook.
func (s *Slack) Send(ctx context.Context, msg model.Message) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL is required")
	}
	if !isValidURL(s.webhookURL) {
		return fmt.Errorf("invalid Slack webhook URL: %q (must be a valid HTTP/HTTPS URL)", s.webhookURL)
	}

	jsonData, err := json.Marshal(BuildSlackPayload(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification to %s: %w", maskURL(s.webhookURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	slog.Debug("Sent Slack notification", "title", msg.Title, "severity", msg.Severity)
	return nil
}

// isValidURL checks if a string is an HTTP/HTTPS URL.
func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// maskURL masks sensitive parts of a URL for logging.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}
