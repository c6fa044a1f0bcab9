package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv, "/api/v1/status", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/v1/status status = %d, want 405", resp.StatusCode)
	}

	getResp, err := http.Get(env.srv.URL + "/api/v1/config/reload")
	if err != nil {
		t.Fatalf("GET reload: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/v1/config/reload status = %d, want 405", getResp.StatusCode)
	}
	if env.reload.calls != 0 {
		t.Errorf("reload calls = %d, want 0", env.reload.calls)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/v1/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods = %q, want POST included", got)
	}

	normal, err := http.Get(env.srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer normal.Body.Close()
	if got := normal.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin on GET = %q, want *", got)
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestMetricsMiddlewareCountsTraffic(t *testing.T) {
	recorder := &fakeCustomRecorder{}
	env := newTestEnv(t, recorder)

	var health any
	getJSON(t, env.srv, "/api/v1/status", &health)
	getJSON(t, env.srv, "/api/v1/errors", &health)
	postJSON(t, env.srv, "/api/v1/logs", "{broken")

	if got := recorder.count("http_GET"); got != 2 {
		t.Errorf("http_GET = %d, want 2", got)
	}
	if got := recorder.count("http_POST"); got != 1 {
		t.Errorf("http_POST = %d, want 1", got)
	}
	if got := recorder.count("http_errors"); got != 1 {
		t.Errorf("http_errors = %d, want 1", got)
	}
}

func TestMetricsMiddlewareSkipsSelfEndpoints(t *testing.T) {
	recorder := &fakeCustomRecorder{}
	env := newTestEnv(t, recorder)

	var snapshot any
	getJSON(t, env.srv, "/api/v1/service-metrics", &snapshot)
	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if got := recorder.count("http_GET"); got != 0 {
		t.Errorf("http_GET = %d, want 0 for skipped endpoints", got)
	}
}

func TestServeWS(t *testing.T) {
	env := newTestEnv(t, nil)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Type != "connected" {
		t.Errorf("ack type = %q, want connected", ack.Type)
	}

	env.hub.mu.Lock()
	joined := env.hub.joined
	env.hub.mu.Unlock()
	if joined != 1 {
		t.Errorf("joined = %d, want 1", joined)
	}
}
