package api

import (
	"net/http"
	"time"
)

// NewServer creates the HTTP server with the router configured. Timeouts do
// not apply to websocket connections once hijacked by the upgrader.
func NewServer(addr string, h *Handlers, recorder CustomRecorder) *http.Server {
	router := NewRouter(h, recorder)
	return &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
