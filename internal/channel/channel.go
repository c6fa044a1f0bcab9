// Package channel implements the notification channels the alert manager
// dispatches to. Every channel receives the same logical message and renders
// it in its own wire format; a channel failure never affects the others.
package channel

import (
	"context"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Channel is the interface all notification channels implement.
type Channel interface {
	// Name returns the channel name (e.g. "slack", "telegram", "email").
	Name() string

	// Send delivers one message. It must respect ctx and return an error
	// describing the failure; the caller decides what a failure means.
	Send(ctx context.Context, msg model.Message) error
}

// Registry holds the configured channels and the severities each one is
// enabled for. It is built once (and rebuilt on config reload) and read-only
// afterwards; swapping registries is the caller's concern.
type Registry struct {
	channels []registered
}

type registered struct {
	channel    Channel
	severities map[model.Severity]bool
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a channel enabled for the given severities. An empty list
// enables the channel for warning and critical.
func (r *Registry) Register(ch Channel, severities []string) {
	r.channels = append(r.channels, registered{
		channel:    ch,
		severities: parseSeverities(severities),
	})
}

// ForSeverity returns the channels enabled for the given severity.
func (r *Registry) ForSeverity(sev model.Severity) []Channel {
	out := make([]Channel, 0, len(r.channels))
	for _, reg := range r.channels {
		if reg.severities[sev] {
			out = append(out, reg.channel)
		}
	}
	return out
}

// All returns every registered channel.
func (r *Registry) All() []Channel {
	out := make([]Channel, 0, len(r.channels))
	for _, reg := range r.channels {
		out = append(out, reg.channel)
	}
	return out
}

// Names returns the registered channel names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.channels))
	for _, reg := range r.channels {
		out = append(out, reg.channel.Name())
	}
	return out
}

func parseSeverities(severities []string) map[model.Severity]bool {
	if len(severities) == 0 {
		return map[model.Severity]bool{
			model.SeverityWarning:  true,
			model.SeverityCritical: true,
		}
	}
	out := make(map[model.Severity]bool, len(severities))
	for _, s := range severities {
		out[model.Severity(s)] = true
	}
	return out
}
