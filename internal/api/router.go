package api

import "net/http"

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux      *http.ServeMux
	handlers *Handlers
	recorder CustomRecorder
}

// NewRouter creates a router with all routes configured. The recorder may be
// nil to disable HTTP traffic counters.
func NewRouter(h *Handlers, recorder CustomRecorder) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		handlers: h,
		recorder: recorder,
	}
	r.setupRoutes()
	return r
}

// handle restricts a handler to one HTTP method.
func handle(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, req)
	}
}

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	h := r.handlers

	// Latest-state endpoints
	r.mux.HandleFunc("/api/v1/status", handle(http.MethodGet, h.GetStatus))
	r.mux.HandleFunc("/api/v1/metrics", handle(http.MethodGet, h.GetMetrics))
	r.mux.HandleFunc("/api/v1/errors", handle(http.MethodGet, h.GetErrorCounts))
	r.mux.HandleFunc("/api/v1/uptime", handle(http.MethodGet, h.GetUptime))

	// Alerting endpoints
	r.mux.HandleFunc("/api/v1/alerts", handle(http.MethodGet, h.GetAlertHistory))
	r.mux.HandleFunc("/api/v1/alerts/test", handle(http.MethodPost, h.TestChannels))
	r.mux.HandleFunc("/api/v1/rules", handle(http.MethodGet, h.GetRules))
	r.mux.HandleFunc("/api/v1/signals/trade-failure", handle(http.MethodPost, h.SignalTradeFailure))

	// Control endpoints
	r.mux.HandleFunc("/api/v1/config/reload", handle(http.MethodPost, h.ReloadConfig))
	r.mux.HandleFunc("/api/v1/logs", handle(http.MethodPost, h.InjectLog))

	// Persisted-history endpoints
	r.mux.HandleFunc("/api/v1/history/health", handle(http.MethodGet, h.HealthHistory))
	r.mux.HandleFunc("/api/v1/history/metrics", handle(http.MethodGet, h.MetricHistory))
	r.mux.HandleFunc("/api/v1/history/logs", handle(http.MethodGet, h.LogHistory))
	r.mux.HandleFunc("/api/v1/history/alerts", handle(http.MethodGet, h.AlertHistoryStore))

	// Self-observability
	r.mux.HandleFunc("/api/v1/service-metrics", handle(http.MethodGet, h.GetServiceMetrics))

	// Live subscribers
	r.mux.HandleFunc("/ws", handle(http.MethodGet, h.ServeWS))

	// Health check endpoint
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Handler returns the HTTP handler with CORS and traffic-counter middleware
// applied.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(metricsMiddleware(r.recorder)(r.mux))
}
