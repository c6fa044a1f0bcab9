package api

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/metrics"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/store"
)

type fakeHealthSource struct {
	latest model.OverallHealth
}

func (f *fakeHealthSource) Latest() model.OverallHealth { return f.latest }

type fakeMetricSource struct {
	latest map[string]model.MetricPoint
}

func (f *fakeMetricSource) Latest() map[string]model.MetricPoint { return f.latest }

type fakeLogSource struct {
	counts   model.ErrorCounts
	injected []model.LogEntry
}

func (f *fakeLogSource) ErrorCounts() model.ErrorCounts { return f.counts }

func (f *fakeLogSource) Inject(component, level, message string, context map[string]any) model.LogEntry {
	entry := model.LogEntry{
		ID:        uint64(len(f.injected) + 1),
		Component: component,
		Level:     model.Level(level),
		Message:   message,
		Context:   context,
	}
	f.injected = append(f.injected, entry)
	return entry
}

type fakeAlertSource struct {
	history     []model.AlertEvent
	rules       []model.AlertRule
	testResults map[string]error

	lastLimit int
	signals   []model.TradeFailureSignal
}

func (f *fakeAlertSource) History(limit int) []model.AlertEvent {
	f.lastLimit = limit
	return f.history
}

func (f *fakeAlertSource) Rules() []model.AlertRule { return f.rules }

func (f *fakeAlertSource) TestChannels(context.Context) map[string]error {
	return f.testResults
}

func (f *fakeAlertSource) SignalTradeFailure(component, reason string) {
	f.signals = append(f.signals, model.TradeFailureSignal{Component: component, Reason: reason})
}

type fakeHistoryStore struct {
	health  []model.HealthSnapshot
	metrics []model.MetricPoint
	alerts  []model.AlertEvent
	logs    []model.LogEntry
	uptime  []model.UptimeRecord
	counts  map[string]int

	healthQuery store.HealthQuery
	metricQuery store.MetricQuery
	alertQuery  store.AlertQuery
	logQuery    store.LogQuery
}

func (f *fakeHistoryStore) QueryHealth(q store.HealthQuery) []model.HealthSnapshot {
	f.healthQuery = q
	return f.health
}

func (f *fakeHistoryStore) QueryMetrics(q store.MetricQuery) []model.MetricPoint {
	f.metricQuery = q
	return f.metrics
}

func (f *fakeHistoryStore) QueryAlerts(q store.AlertQuery) []model.AlertEvent {
	f.alertQuery = q
	return f.alerts
}

func (f *fakeHistoryStore) QueryLogs(q store.LogQuery) []model.LogEntry {
	f.logQuery = q
	return f.logs
}

func (f *fakeHistoryStore) Uptime() []model.UptimeRecord { return f.uptime }

func (f *fakeHistoryStore) Counts() map[string]int { return f.counts }

type fakeServiceMetrics struct {
	snapshot *metrics.ServiceMetrics
}

func (f *fakeServiceMetrics) GetSnapshot() *metrics.ServiceMetrics { return f.snapshot }

type fakeJoiner struct {
	mu     sync.Mutex
	joined int
}

func (f *fakeJoiner) Join(conn *websocket.Conn) {
	f.mu.Lock()
	f.joined++
	f.mu.Unlock()
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connected"}`))
	conn.Close()
}

type fakeReloader struct {
	err   error
	calls int
}

func (f *fakeReloader) Reload() error {
	f.calls++
	return f.err
}

type fakeCustomRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeCustomRecorder) IncrementCustom(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[name]++
}

func (f *fakeCustomRecorder) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}
