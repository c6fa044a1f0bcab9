package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// defaultHistoryLimit is used when a query carries no usable limit.
const defaultHistoryLimit = 50

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body as JSON into the provided value.
// Returns true on success, false on error (and writes error response).
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// parseLimit reads the limit query parameter, falling back to def when the
// parameter is absent or not a positive integer.
func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func statusParam(r *http.Request) model.Status {
	return model.Status(r.URL.Query().Get("status"))
}

func levelParam(r *http.Request) model.Level {
	return model.Level(r.URL.Query().Get("level"))
}

func severityParam(r *http.Request) model.Severity {
	return model.Severity(r.URL.Query().Get("severity"))
}
