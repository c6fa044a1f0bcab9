package api

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/metrics"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/store"
)

// HealthSource provides the latest aggregate health view.
type HealthSource interface {
	Latest() model.OverallHealth
}

// MetricSource provides the latest value of every metric key.
type MetricSource interface {
	Latest() map[string]model.MetricPoint
}

// LogSource provides the rolling error counts and the injection point for
// externally reported log entries.
type LogSource interface {
	ErrorCounts() model.ErrorCounts
	Inject(component, level, message string, context map[string]any) model.LogEntry
}

// AlertSource exposes the alert manager operations the API forwards.
type AlertSource interface {
	History(limit int) []model.AlertEvent
	Rules() []model.AlertRule
	TestChannels(ctx context.Context) map[string]error
	SignalTradeFailure(component, reason string)
}

// HistoryStore is the persisted-stream query surface.
type HistoryStore interface {
	QueryHealth(store.HealthQuery) []model.HealthSnapshot
	QueryMetrics(store.MetricQuery) []model.MetricPoint
	QueryAlerts(store.AlertQuery) []model.AlertEvent
	QueryLogs(store.LogQuery) []model.LogEntry
	Uptime() []model.UptimeRecord
	Counts() map[string]int
}

// ServiceMetricsSource provides the self-observability snapshot.
type ServiceMetricsSource interface {
	GetSnapshot() *metrics.ServiceMetrics
}

// Broadcaster accepts an upgraded subscriber connection and services it for
// its lifetime.
type Broadcaster interface {
	Join(conn *websocket.Conn)
}

// ConfigReloader reapplies the external configuration.
type ConfigReloader interface {
	Reload() error
}
