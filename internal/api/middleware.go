package api

import "net/http"

// CustomRecorder counts HTTP traffic in the self-metrics custom counters.
type CustomRecorder interface {
	IncrementCustom(name string)
}

// corsMiddleware applies CORS headers to all requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware counts requests and error responses per HTTP method. The
// websocket and probe endpoints are left unwrapped: /ws needs the hijackable
// ResponseWriter and /health must stay free of self-counting.
func metricsMiddleware(recorder CustomRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil || r.URL.Path == "/ws" || r.URL.Path == "/health" || r.URL.Path == "/api/v1/service-metrics" {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			recorder.IncrementCustom("http_" + r.Method)
			if wrapped.statusCode >= 400 {
				recorder.IncrementCustom("http_errors")
			}
		})
	}
}
