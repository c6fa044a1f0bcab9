// Package model defines the domain types shared across the monitor: component
// health, performance metrics, uptime tracking, classified log entries, alert
// rules and events, and the notification message handed to delivery channels.
package model

import "time"

// Status is the health classification of a monitored component.
type Status string

// Component health statuses. Aggregation treats critical as dominant: a single
// critical component makes the overall status critical.
const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 1
	case StatusWarning:
		return 2
	case StatusCritical:
		return 3
	default:
		return 0
	}
}

// WorseOf returns the worse of two statuses under the
// critical > warning > healthy > unknown ordering.
func WorseOf(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Level is the classification of a log entry.
type Level string

// Log levels, from least to most severe.
const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// IsError reports whether the level counts toward the rolling error rate.
func (l Level) IsError() bool {
	return l == LevelError || l == LevelCritical
}

// HealthSnapshot is the immutable outcome of one health check of one component.
type HealthSnapshot struct {
	ID             uint64         `json:"id"`
	Component      string         `json:"component"`
	Status         Status         `json:"status"`
	ResponseTimeMS *float64       `json:"response_time_ms,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// OverallHealth aggregates the most recent snapshot of every component.
type OverallHealth struct {
	Overall    Status                    `json:"overall"`
	Components map[string]HealthSnapshot `json:"components"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// MetricPoint is a single sampled performance value.
type MetricPoint struct {
	ID        uint64    `json:"id"`
	Component string    `json:"component"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies the metric series this point belongs to.
func (p MetricPoint) Key() string {
	return p.Component + "." + p.Name
}

// UptimeRecord tracks availability for one component. There is exactly one
// record per component; it is mutated in place on every poll and is exempt
// from retention purges.
type UptimeRecord struct {
	Component     string    `json:"component"`
	UptimeSeconds float64   `json:"cumulative_uptime_seconds"`
	LastOnline    time.Time `json:"last_online"`
	LastOffline   time.Time `json:"last_offline"`
	DowntimeCount int       `json:"downtime_transition_count"`
}

// Online reports whether the component was online at its most recent poll.
func (r UptimeRecord) Online() bool {
	if r.LastOnline.IsZero() {
		return false
	}
	return r.LastOffline.IsZero() || r.LastOnline.After(r.LastOffline)
}

// LogEntry is one classified application log line.
type LogEntry struct {
	ID        uint64         `json:"id"`
	Component string         `json:"component"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
