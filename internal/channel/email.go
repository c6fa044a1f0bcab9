package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/channel/provider"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Email sends messages as HTML mail through a provider registry, so delivery
// survives a single backend being down.
type Email struct {
	from      string
	to        []string
	providers *provider.Registry
}

var _ Channel = (*Email)(nil)

// NewEmail creates an email channel delivering from the given address to the
// given recipients via providers.
func NewEmail(from string, to []string, providers *provider.Registry) *Email {
	return &Email{
		from:      from,
		to:        to,
		providers: providers,
	}
}

// Name returns the channel name.
func (e *Email) Name() string {
	return "email"
}

// Send renders the message and delivers it through the provider registry.
func (e *Email) Send(ctx context.Context, msg model.Message) error {
	if e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email sender and recipients are required")
	}

	payload := BuildEmailPayload(msg)
	err := e.providers.Send(ctx, &provider.EmailRequest{
		From:    e.from,
		To:      e.to,
		Subject: payload.Subject,
		Body:    payload.Text,
		HTML:    payload.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send email notification: %w", err)
	}

	slog.Debug("Sent email notification", "title", msg.Title, "severity", msg.Severity)
	return nil
}
