// Package provider defines the email delivery provider interface and a
// registry with primary/fallback selection, so the mail channel keeps working
// when one backend is down or unconfigured.
package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// EmailRequest represents an email to be sent.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Body    string // plain text body
	HTML    string // HTML body (optional)
}

// Provider is the interface that all email providers implement.
type Provider interface {
	// Name returns the provider name (e.g. "smtp", "ses", "resend").
	Name() string

	// Send sends an email using this provider.
	Send(ctx context.Context, req *EmailRequest) error

	// IsConfigured returns true if the provider has what it needs to send.
	IsConfigured() bool
}

// Registry manages email providers with fallback support. It is built once
// at startup (or config reload) and read-only afterwards.
type Registry struct {
	providers map[string]Provider
	order     []string
	primary   string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider.
func (r *Registry) Register(p Provider) {
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
	slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

// SetPrimary selects the preferred provider by name.
func (r *Registry) SetPrimary(name string) error {
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	r.primary = name
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// GetPrimary returns the primary configured provider, falling back to any
// other configured provider in registration order.
func (r *Registry) GetPrimary() (Provider, error) {
	if r.primary != "" {
		if p, ok := r.providers[r.primary]; ok && p.IsConfigured() {
			return p, nil
		}
	}
	for _, name := range r.order {
		if p := r.providers[name]; p.IsConfigured() {
			if r.primary != "" {
				slog.Warn("Primary email provider not configured, using fallback",
					"primary", r.primary, "fallback", name)
			}
			return p, nil
		}
	}
	return nil, fmt.Errorf("no configured email provider available")
}

// Send sends an email using the best available provider, trying the other
// configured providers when the chosen one fails. The original error is
// returned if every attempt fails.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) error {
	chosen, err := r.GetPrimary()
	if err != nil {
		return err
	}

	sendErr := chosen.Send(ctx, req)
	if sendErr == nil {
		return nil
	}

	for _, name := range r.order {
		p := r.providers[name]
		if p.Name() == chosen.Name() || !p.IsConfigured() {
			continue
		}
		slog.Warn("Email provider failed, trying fallback",
			"failed", chosen.Name(), "fallback", name, "error", sendErr)
		if err := p.Send(ctx, req); err == nil {
			return nil
		}
	}
	return sendErr
}

// List returns all registered provider names in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
