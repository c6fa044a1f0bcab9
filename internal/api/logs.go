package api

import "net/http"

// injectLogRequest is an externally reported log entry.
type injectLogRequest struct {
	Component string         `json:"component"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
}

// InjectLog records an externally reported entry through the aggregator.
// POST /api/v1/logs
func (h *Handlers) InjectLog(w http.ResponseWriter, r *http.Request) {
	var req injectLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	entry := h.deps.Logs.Inject(req.Component, req.Level, req.Message, req.Context)
	writeJSON(w, http.StatusCreated, entry)
}
