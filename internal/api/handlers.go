// Package api exposes the monitor's state over a thin REST surface plus the
// websocket subscriber endpoint. Handlers forward to the owning components
// through small source interfaces.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/store"
)

// Deps carries the collaborators the handlers forward to. Service may be nil
// when self-metrics are disabled.
type Deps struct {
	Health   HealthSource
	Perf     MetricSource
	Logs     LogSource
	Alerts   AlertSource
	History  HistoryStore
	Service  ServiceMetricsSource
	Hub      Broadcaster
	Reloader ConfigReloader
}

// Handlers wraps the HTTP handlers around their dependencies.
type Handlers struct {
	deps     Deps
	upgrader websocket.Upgrader
}

// NewHandlers creates a handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GetStatus returns the latest aggregate health.
// GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Health.Latest())
}

// GetMetrics returns the latest value of every metric key.
// GET /api/v1/metrics
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Perf.Latest())
}

// GetErrorCounts returns the rolling error-rate counters.
// GET /api/v1/errors
func (h *Handlers) GetErrorCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Logs.ErrorCounts())
}

// GetUptime returns the uptime record of every known component.
// GET /api/v1/uptime
func (h *Handlers) GetUptime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.History.Uptime())
}

// serviceMetricsResponse wraps the self-metrics snapshot with the stream
// sizes of the store.
type serviceMetricsResponse struct {
	Service any            `json:"service"`
	Streams map[string]int `json:"streams"`
}

// GetServiceMetrics returns the monitor's own counters and stream sizes.
// GET /api/v1/service-metrics
func (h *Handlers) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	resp := serviceMetricsResponse{Streams: h.deps.History.Counts()}
	if h.deps.Service != nil {
		resp.Service = h.deps.Service.GetSnapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthHistory returns persisted health snapshots, newest first.
// GET /api/v1/history/health?component=&status=&limit=
func (h *Handlers) HealthHistory(w http.ResponseWriter, r *http.Request) {
	q := store.HealthQuery{
		Component: r.URL.Query().Get("component"),
		Status:    statusParam(r),
		Limit:     parseLimit(r, defaultHistoryLimit),
	}
	writeJSON(w, http.StatusOK, h.deps.History.QueryHealth(q))
}

// MetricHistory returns persisted metric points, newest first.
// GET /api/v1/history/metrics?component=&name=&limit=
func (h *Handlers) MetricHistory(w http.ResponseWriter, r *http.Request) {
	q := store.MetricQuery{
		Component: r.URL.Query().Get("component"),
		Name:      r.URL.Query().Get("name"),
		Limit:     parseLimit(r, defaultHistoryLimit),
	}
	writeJSON(w, http.StatusOK, h.deps.History.QueryMetrics(q))
}

// LogHistory returns persisted log entries, newest first.
// GET /api/v1/history/logs?component=&level=&limit=
func (h *Handlers) LogHistory(w http.ResponseWriter, r *http.Request) {
	q := store.LogQuery{
		Component: r.URL.Query().Get("component"),
		Level:     levelParam(r),
		Limit:     parseLimit(r, defaultHistoryLimit),
	}
	writeJSON(w, http.StatusOK, h.deps.History.QueryLogs(q))
}

// AlertHistoryStore returns persisted alert events, newest first.
// GET /api/v1/history/alerts?rule=&severity=&limit=
func (h *Handlers) AlertHistoryStore(w http.ResponseWriter, r *http.Request) {
	q := store.AlertQuery{
		Rule:     r.URL.Query().Get("rule"),
		Severity: severityParam(r),
		Limit:    parseLimit(r, defaultHistoryLimit),
	}
	writeJSON(w, http.StatusOK, h.deps.History.QueryAlerts(q))
}

// ServeWS upgrades the connection and hands it to the broadcaster.
// GET /ws
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Failed to upgrade websocket connection", "error", err)
		return
	}
	h.deps.Hub.Join(conn)
}
