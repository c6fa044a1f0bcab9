package main

import (
	"log/slog"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/alert"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/channel"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/channel/provider"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/config"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/health"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/perf"
)

// buildCheckers turns the component configuration into health checkers.
func buildCheckers(components []config.ComponentConfig) []health.Checker {
	checkers := make([]health.Checker, 0, len(components))
	for _, c := range components {
		switch c.Type {
		case config.ComponentHTTP:
			checkers = append(checkers, health.NewHTTPChecker(c.Name, c.URL, c.Timeout, c.WarningMS, c.CriticalMS))
		case config.ComponentHeartbeat:
			checkers = append(checkers, health.NewHeartbeatChecker(c.Name, c.LivenessFile, c.MaxHeartbeatAge))
		}
	}
	return checkers
}

// backendProbe returns a probe for the first HTTP component, or nil when the
// deployment monitors none.
func backendProbe(components []config.ComponentConfig) *perf.BackendProbe {
	for _, c := range components {
		if c.Type == config.ComponentHTTP {
			return perf.NewBackendProbe(c.Name, c.URL, c.Timeout)
		}
	}
	return nil
}

// livenessCounters returns a counter reader for the first heartbeat
// component, or nil when the deployment monitors none.
func livenessCounters(components []config.ComponentConfig) *perf.LivenessCounters {
	for _, c := range components {
		if c.Type == config.ComponentHeartbeat {
			return perf.NewLivenessCounters(c.Name, c.LivenessFile)
		}
	}
	return nil
}

// buildChannels turns the channel configuration into a registry. Channels
// missing their required settings are skipped.
func buildChannels(cfg config.ChannelsConfig) *channel.Registry {
	registry := channel.NewRegistry()

	if cfg.Slack.Configured() {
		registry.Register(channel.NewSlack(cfg.Slack.WebhookURL), cfg.Slack.Severities)
	}
	if cfg.Telegram.Configured() {
		registry.Register(channel.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID), cfg.Telegram.Severities)
	}
	if cfg.Email.Configured() {
		providers := buildEmailProviders(cfg.Email)
		registry.Register(channel.NewEmail(cfg.Email.From, cfg.Email.To, providers), cfg.Email.Severities)
	}

	return registry
}

// buildEmailProviders registers every configured delivery backend and marks
// the preferred one primary.
func buildEmailProviders(cfg config.EmailConfig) *provider.Registry {
	providers := provider.NewRegistry()

	if cfg.SMTP.Host != "" {
		providers.Register(provider.NewSMTPProvider(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password))
	}
	if cfg.SES.Region != "" {
		providers.Register(provider.NewSESProvider(cfg.SES.Region))
	}
	if cfg.Resend.APIKey != "" {
		providers.Register(provider.NewResendProvider(cfg.Resend.APIKey))
	}
	if cfg.Provider != "" {
		if err := providers.SetPrimary(cfg.Provider); err != nil {
			slog.Warn("Preferred email provider not configured, using registration order", "provider", cfg.Provider, "error", err)
		}
	}

	return providers
}

// configReloader reapplies the alert rules and notification channels from the
// configuration file. Everything else keeps its startup value; a failed load
// clears the rule and channel sets until a later reload succeeds.
type configReloader struct {
	path    string
	manager *alert.Manager
}

func (r *configReloader) Reload() error {
	cfg, err := config.Load(r.path)
	if err != nil {
		r.manager.Reload(nil, channel.NewRegistry())
		return err
	}
	r.manager.Reload(cfg.Alerts.Rules, buildChannels(cfg.Channels))
	return nil
}
