// Package broadcast implements the live-subscriber hub: websocket clients
// join, receive health and metric pushes, and are dropped as soon as a write
// to them fails.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds every subscriber write.
	writeTimeout = 10 * time.Second
	// maxInbound caps client messages; clients only ever send pings.
	maxInbound = 1024
)

// Envelope is the server-to-client message shape.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder counts outgoing pushes.
type Recorder interface {
	RecordBroadcast()
}

// NoOpRecorder is a Recorder that does nothing.
type NoOpRecorder struct{}

var _ Recorder = (*NoOpRecorder)(nil)

// RecordBroadcast does nothing.
func (*NoOpRecorder) RecordBroadcast() {}

// subscriber serializes writes to one connection; the reader goroutine and
// broadcast pushes would otherwise interleave frames.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans envelopes out to every live subscriber.
type Hub struct {
	metrics Recorder

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// NewHub creates an empty hub. A nil recorder disables counter recording.
func NewHub(recorder Recorder) *Hub {
	if recorder == nil {
		recorder = &NoOpRecorder{}
	}
	return &Hub{
		metrics:     recorder,
		subscribers: map[*subscriber]struct{}{},
	}
}

// Join registers the connection, acknowledges it, and services its inbound
// messages until the connection dies. It blocks for the connection lifetime,
// so the upgrading HTTP handler is its natural caller.
func (h *Hub) Join(conn *websocket.Conn) {
	sub := &subscriber{conn: conn}

	ack, _ := json.Marshal(Envelope{Type: "connected", Timestamp: time.Now().UTC()})
	if err := sub.write(ack); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	slog.Info("Subscriber joined", "subscribers", n)

	h.read(sub)
}

// read answers pings with pongs and ignores everything else. Any read or
// write error drops the subscriber.
func (h *Hub) read(sub *subscriber) {
	defer h.drop(sub)
	sub.conn.SetReadLimit(maxInbound)

	for {
		_, raw, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "ping" {
			slog.Debug("Ignoring subscriber message", "payload", string(raw))
			continue
		}
		pong, _ := json.Marshal(Envelope{Type: "pong", Timestamp: time.Now().UTC()})
		if err := sub.write(pong); err != nil {
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	_, known := h.subscribers[sub]
	delete(h.subscribers, sub)
	n := len(h.subscribers)
	h.mu.Unlock()

	sub.conn.Close()
	if known {
		slog.Info("Subscriber left", "subscribers", n)
	}
}

// Broadcast pushes one envelope to every subscriber, dropping any whose
// write fails.
func (h *Hub) Broadcast(kind string, data any) {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		slog.Error("Failed to marshal broadcast", "type", kind, "error", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(payload); err != nil {
			slog.Warn("Dropping subscriber after failed write", "type", kind, "error", err)
			h.drop(sub)
		}
	}
	if len(subs) > 0 {
		h.metrics.RecordBroadcast()
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// CloseAll disconnects every subscriber, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = map[*subscriber]struct{}{}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
}
