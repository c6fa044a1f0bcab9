package api

import (
	"log/slog"
	"net/http"
)

// GetAlertHistory returns recent alert events from the in-memory ring.
// GET /api/v1/alerts?limit=
func (h *Handlers) GetAlertHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Alerts.History(parseLimit(r, defaultHistoryLimit)))
}

// GetRules returns the active alert rule set.
// GET /api/v1/rules
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Alerts.Rules())
}

// channelTestResponse reports the per-channel outcome of a test send.
type channelTestResponse struct {
	Results  map[string]string `json:"results"`
	Failures int               `json:"failures"`
}

// TestChannels sends a synthetic message through every configured channel.
// POST /api/v1/alerts/test
func (h *Handlers) TestChannels(w http.ResponseWriter, r *http.Request) {
	outcome := h.deps.Alerts.TestChannels(r.Context())

	resp := channelTestResponse{Results: make(map[string]string, len(outcome))}
	for name, err := range outcome {
		if err != nil {
			resp.Results[name] = err.Error()
			resp.Failures++
			continue
		}
		resp.Results[name] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// tradeFailureRequest raises the external trade-failure flag.
type tradeFailureRequest struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
}

// SignalTradeFailure raises the trade-failure flag for the next evaluation.
// POST /api/v1/signals/trade-failure
func (h *Handlers) SignalTradeFailure(w http.ResponseWriter, r *http.Request) {
	var req tradeFailureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.deps.Alerts.SignalTradeFailure(req.Component, req.Reason)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ReloadConfig reapplies the external configuration.
// POST /api/v1/config/reload
func (h *Handlers) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reloader.Reload(); err != nil {
		slog.Error("Failed to reload configuration", "error", err)
		http.Error(w, "Failed to reload configuration: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
