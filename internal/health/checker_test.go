package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

func TestHTTPCheckerHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","open_positions":3}`)
	}))
	defer srv.Close()

	c := NewHTTPChecker("backend", srv.URL, time.Second, 5000, 10000)
	snap := c.Check(context.Background())

	if snap.Status != model.StatusHealthy {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusHealthy)
	}
	if snap.ResponseTimeMS == nil || *snap.ResponseTimeMS <= 0 {
		t.Errorf("ResponseTimeMS = %v, want > 0", snap.ResponseTimeMS)
	}
	if snap.Details["status_code"] != 200 {
		t.Errorf("Details[status_code] = %v, want 200", snap.Details["status_code"])
	}
	if snap.Details["open_positions"] != float64(3) {
		t.Errorf("Details[open_positions] = %v, want 3", snap.Details["open_positions"])
	}
}

func TestHTTPCheckerLatencyThresholds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		warningMS  float64
		criticalMS float64
		want       model.Status
	}{
		{"under both", 5000, 10000, model.StatusHealthy},
		{"over warning", 5, 10000, model.StatusWarning},
		{"over critical", 1, 5, model.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHTTPChecker("backend", srv.URL, time.Second, tt.warningMS, tt.criticalMS)
			snap := c.Check(context.Background())
			if snap.Status != tt.want {
				t.Errorf("Status = %q, want %q", snap.Status, tt.want)
			}
		})
	}
}

func TestHTTPCheckerTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewHTTPChecker("backend", srv.URL, time.Second, 5000, 10000)
	snap := c.Check(context.Background())

	if snap.Status != model.StatusCritical {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusCritical)
	}
	if _, ok := snap.Details["error"]; !ok {
		t.Error("Details[error] missing")
	}
}

func TestHTTPCheckerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPChecker("backend", srv.URL, time.Second, 5000, 10000)
	snap := c.Check(context.Background())

	if snap.Status != model.StatusCritical {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusCritical)
	}
	errMsg, _ := snap.Details["error"].(string)
	if !strings.Contains(errMsg, "500") {
		t.Errorf("Details[error] = %q, want mention of 500", errMsg)
	}
}

func TestHTTPCheckerBreakerEscalatesHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"circuit_breaker_active":true}`)
	}))
	defer srv.Close()

	c := NewHTTPChecker("backend", srv.URL, time.Second, 5000, 10000)
	snap := c.Check(context.Background())

	if snap.Status != model.StatusWarning {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusWarning)
	}
	if snap.Details["circuit_breaker_active"] != true {
		t.Error("Details[circuit_breaker_active] = false, want true")
	}
}

func writeLiveness(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liveness.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write liveness file: %v", err)
	}
	return path
}

func TestHeartbeatChecker(t *testing.T) {
	now := time.Now().UTC()
	stamp := func(age time.Duration) string {
		return now.Add(-age).Format(time.RFC3339Nano)
	}

	tests := []struct {
		name string
		doc  string
		want model.Status
	}{
		{
			name: "fresh heartbeat",
			doc:  fmt.Sprintf(`{"is_alive":true,"last_heartbeat":%q}`, stamp(5*time.Second)),
			want: model.StatusHealthy,
		},
		{
			name: "breaker active",
			doc:  fmt.Sprintf(`{"is_alive":true,"last_heartbeat":%q,"circuit_breaker_active":true}`, stamp(5*time.Second)),
			want: model.StatusWarning,
		},
		{
			name: "stale heartbeat",
			doc:  fmt.Sprintf(`{"is_alive":true,"last_heartbeat":%q}`, stamp(90*time.Second)),
			want: model.StatusWarning,
		},
		{
			name: "very stale heartbeat",
			doc:  fmt.Sprintf(`{"is_alive":true,"last_heartbeat":%q}`, stamp(150*time.Second)),
			want: model.StatusCritical,
		},
		{
			name: "liveness flag false",
			doc:  fmt.Sprintf(`{"is_alive":false,"last_heartbeat":%q}`, stamp(time.Second)),
			want: model.StatusCritical,
		},
		{
			name: "malformed file",
			doc:  `{not json`,
			want: model.StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLiveness(t, tt.doc)
			c := NewHeartbeatChecker("agent", path, time.Minute)
			snap := c.Check(context.Background())
			if snap.Status != tt.want {
				t.Errorf("Status = %q, want %q", snap.Status, tt.want)
			}
		})
	}
}

func TestHeartbeatCheckerMissingFile(t *testing.T) {
	c := NewHeartbeatChecker("agent", filepath.Join(t.TempDir(), "absent.json"), time.Minute)
	snap := c.Check(context.Background())

	if snap.Status != model.StatusCritical {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusCritical)
	}
	errMsg, _ := snap.Details["error"].(string)
	if !strings.Contains(errMsg, "liveness file") {
		t.Errorf("Details[error] = %q, want liveness file read error", errMsg)
	}
}

func TestHeartbeatCheckerCounters(t *testing.T) {
	doc := fmt.Sprintf(`{"is_alive":true,"last_heartbeat":%q,"signals_count":12,"trades_count":4,"errors_count":1}`,
		time.Now().UTC().Format(time.RFC3339Nano))
	path := writeLiveness(t, doc)

	c := NewHeartbeatChecker("agent", path, time.Minute)
	snap := c.Check(context.Background())

	if snap.Details["signals_count"] != float64(12) {
		t.Errorf("Details[signals_count] = %v, want 12", snap.Details["signals_count"])
	}
	if snap.Details["trades_count"] != float64(4) {
		t.Errorf("Details[trades_count] = %v, want 4", snap.Details["trades_count"])
	}
	if snap.Details["errors_count"] != float64(1) {
		t.Errorf("Details[errors_count] = %v, want 1", snap.Details["errors_count"])
	}
}
