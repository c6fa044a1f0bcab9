package model

import "time"

// Severity classifies alerts and notification messages.
type Severity string

// Alert severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertRule declares one alerting condition. The condition itself is a
// predicate registered in the alert package under the rule ID; the rule
// carries only metadata and the enabled flag.
type AlertRule struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	Enabled     bool     `json:"enabled"`
}

// AlertEvent records one dispatched alert: which rule fired, the rendered
// message, and the channels that were actually notified.
type AlertEvent struct {
	ID        string         `json:"id"`
	Rule      string         `json:"rule"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Channels  []string       `json:"channels_notified"`
	Timestamp time.Time      `json:"timestamp"`
}

// Message is the one logical notification produced per dispatched alert.
// Every delivery channel receives the same Message and renders it in its own
// wire format.
type Message struct {
	Title     string
	Text      string
	Details   string
	Severity  Severity
	Timestamp time.Time
}

// ErrorCounts is the rolling error-rate view maintained by the log aggregator.
type ErrorCounts struct {
	LastHour      int `json:"last_hour"`
	Last10Minutes int `json:"last_10_minutes"`
}

// TradeFailureSignal is an externally raised flag, consumed by the next alert
// evaluation pass.
type TradeFailureSignal struct {
	Component string    `json:"component,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RaisedAt  time.Time `json:"raised_at"`
}
