package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/metrics"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/store"
)

type testEnv struct {
	health  *fakeHealthSource
	perf    *fakeMetricSource
	logs    *fakeLogSource
	alerts  *fakeAlertSource
	history *fakeHistoryStore
	service *fakeServiceMetrics
	hub     *fakeJoiner
	reload  *fakeReloader
	srv     *httptest.Server
}

func newTestEnv(t *testing.T, recorder CustomRecorder) *testEnv {
	t.Helper()

	env := &testEnv{
		health: &fakeHealthSource{latest: model.OverallHealth{
			Overall:    model.StatusHealthy,
			Components: map[string]model.HealthSnapshot{},
			Timestamp:  time.Now().UTC(),
		}},
		perf:    &fakeMetricSource{latest: map[string]model.MetricPoint{}},
		logs:    &fakeLogSource{counts: model.ErrorCounts{LastHour: 3, Last10Minutes: 1}},
		alerts:  &fakeAlertSource{testResults: map[string]error{}},
		history: &fakeHistoryStore{counts: map[string]int{"health": 2}},
		service: &fakeServiceMetrics{snapshot: &metrics.ServiceMetrics{ServiceName: "monitor", ChecksRun: 7}},
		hub:     &fakeJoiner{},
		reload:  &fakeReloader{},
	}

	deps := Deps{
		Health:   env.health,
		Perf:     env.perf,
		Logs:     env.logs,
		Alerts:   env.alerts,
		History:  env.history,
		Service:  env.service,
		Hub:      env.hub,
		Reloader: env.reload,
	}
	env.srv = httptest.NewServer(NewRouter(NewHandlers(deps), recorder).Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.health.latest.Overall = model.StatusWarning
	env.health.latest.Components = map[string]model.HealthSnapshot{
		"backend": {Component: "backend", Status: model.StatusWarning},
	}

	var got model.OverallHealth
	getJSON(t, env.srv, "/api/v1/status", &got)

	if got.Overall != model.StatusWarning {
		t.Errorf("overall = %q, want warning", got.Overall)
	}
	if got.Components["backend"].Status != model.StatusWarning {
		t.Errorf("backend status = %q, want warning", got.Components["backend"].Status)
	}
}

func TestGetMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.perf.latest = map[string]model.MetricPoint{
		"system.cpu_percent": {Component: "system", Name: "cpu_percent", Value: 41.5},
	}

	var got map[string]model.MetricPoint
	getJSON(t, env.srv, "/api/v1/metrics", &got)

	if got["system.cpu_percent"].Value != 41.5 {
		t.Errorf("cpu value = %v, want 41.5", got["system.cpu_percent"].Value)
	}
}

func TestGetErrorCounts(t *testing.T) {
	env := newTestEnv(t, nil)

	var got model.ErrorCounts
	getJSON(t, env.srv, "/api/v1/errors", &got)

	if got.LastHour != 3 || got.Last10Minutes != 1 {
		t.Errorf("counts = %+v, want {3 1}", got)
	}
}

func TestGetUptime(t *testing.T) {
	env := newTestEnv(t, nil)
	env.history.uptime = []model.UptimeRecord{{Component: "backend", UptimeSeconds: 120}}

	var got []model.UptimeRecord
	getJSON(t, env.srv, "/api/v1/uptime", &got)

	if len(got) != 1 || got[0].Component != "backend" {
		t.Fatalf("uptime = %+v, want one backend record", got)
	}
}

func TestGetServiceMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	var got struct {
		Service struct {
			ServiceName string `json:"service_name"`
			ChecksRun   uint64 `json:"checks_run"`
		} `json:"service"`
		Streams map[string]int `json:"streams"`
	}
	getJSON(t, env.srv, "/api/v1/service-metrics", &got)

	if got.Service.ServiceName != "monitor" || got.Service.ChecksRun != 7 {
		t.Errorf("service = %+v, want monitor with 7 checks", got.Service)
	}
	if got.Streams["health"] != 2 {
		t.Errorf("streams = %v, want health:2", got.Streams)
	}
}

func TestGetAlertHistoryLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.alerts.history = []model.AlertEvent{{ID: "a1", Rule: "High Memory Usage"}}

	var got []model.AlertEvent
	getJSON(t, env.srv, "/api/v1/alerts?limit=5", &got)

	if env.alerts.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", env.alerts.lastLimit)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("alerts = %+v, want the seeded event", got)
	}

	getJSON(t, env.srv, "/api/v1/alerts", &got)
	if env.alerts.lastLimit != defaultHistoryLimit {
		t.Errorf("default limit = %d, want %d", env.alerts.lastLimit, defaultHistoryLimit)
	}

	getJSON(t, env.srv, "/api/v1/alerts?limit=junk", &got)
	if env.alerts.lastLimit != defaultHistoryLimit {
		t.Errorf("junk limit = %d, want %d", env.alerts.lastLimit, defaultHistoryLimit)
	}
}

func TestGetRules(t *testing.T) {
	env := newTestEnv(t, nil)
	env.alerts.rules = []model.AlertRule{
		{ID: "high-memory-usage", Name: "High Memory Usage", Severity: model.SeverityWarning, Enabled: true},
	}

	var got []model.AlertRule
	getJSON(t, env.srv, "/api/v1/rules", &got)

	if len(got) != 1 || got[0].ID != "high-memory-usage" {
		t.Fatalf("rules = %+v, want the seeded rule", got)
	}
}

func TestTestChannelsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.alerts.testResults = map[string]error{
		"slack": nil,
		"email": errors.New("send failed"),
	}

	resp := postJSON(t, env.srv, "/api/v1/alerts/test", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got channelTestResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Results["slack"] != "ok" {
		t.Errorf("slack = %q, want ok", got.Results["slack"])
	}
	if got.Results["email"] != "send failed" {
		t.Errorf("email = %q, want send failed", got.Results["email"])
	}
	if got.Failures != 1 {
		t.Errorf("failures = %d, want 1", got.Failures)
	}
}

func TestSignalTradeFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv, "/api/v1/signals/trade-failure",
		`{"component":"agent","reason":"order rejected by exchange"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(env.alerts.signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(env.alerts.signals))
	}
	sig := env.alerts.signals[0]
	if sig.Component != "agent" || sig.Reason != "order rejected by exchange" {
		t.Errorf("signal = %+v, want agent/order rejected by exchange", sig)
	}

	resp = postJSON(t, env.srv, "/api/v1/signals/trade-failure", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestInjectLog(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv, "/api/v1/logs",
		`{"component":"agent","level":"error","message":"fill timeout","context":{"order_id":"o-17"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var got model.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Component != "agent" || got.Level != model.LevelError || got.Message != "fill timeout" {
		t.Errorf("entry = %+v", got)
	}
	if len(env.logs.injected) != 1 {
		t.Fatalf("injected = %d, want 1", len(env.logs.injected))
	}
	if env.logs.injected[0].Context["order_id"] != "o-17" {
		t.Errorf("context = %v, want order_id o-17", env.logs.injected[0].Context)
	}
}

func TestInjectLogRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv, "/api/v1/logs", `{"component":"agent","level":"info"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(env.logs.injected) != 0 {
		t.Errorf("injected = %d, want 0", len(env.logs.injected))
	}

	resp = postJSON(t, env.srv, "/api/v1/logs", "{broken")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestReloadConfig(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.srv, "/api/v1/config/reload", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if env.reload.calls != 1 {
		t.Errorf("reload calls = %d, want 1", env.reload.calls)
	}

	env.reload.err = errors.New("config file is malformed")
	resp = postJSON(t, env.srv, "/api/v1/config/reload", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("failure status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("config file is malformed")) {
		t.Errorf("body = %q, want the reload error", body)
	}
}

func TestHistoryEndpointsMapQueryParams(t *testing.T) {
	env := newTestEnv(t, nil)

	var health []model.HealthSnapshot
	getJSON(t, env.srv, "/api/v1/history/health?component=backend&status=critical&limit=7", &health)
	wantHealth := store.HealthQuery{Component: "backend", Status: model.StatusCritical, Limit: 7}
	if env.history.healthQuery != wantHealth {
		t.Errorf("health query = %+v, want %+v", env.history.healthQuery, wantHealth)
	}

	var points []model.MetricPoint
	getJSON(t, env.srv, "/api/v1/history/metrics?component=system&name=cpu_percent", &points)
	wantMetric := store.MetricQuery{Component: "system", Name: "cpu_percent", Limit: defaultHistoryLimit}
	if env.history.metricQuery != wantMetric {
		t.Errorf("metric query = %+v, want %+v", env.history.metricQuery, wantMetric)
	}

	var logs []model.LogEntry
	getJSON(t, env.srv, "/api/v1/history/logs?level=error&limit=3", &logs)
	wantLog := store.LogQuery{Level: model.LevelError, Limit: 3}
	if env.history.logQuery != wantLog {
		t.Errorf("log query = %+v, want %+v", env.history.logQuery, wantLog)
	}

	var alerts []model.AlertEvent
	getJSON(t, env.srv, "/api/v1/history/alerts?rule=High%20Memory%20Usage&severity=warning", &alerts)
	wantAlert := store.AlertQuery{Rule: "High Memory Usage", Severity: model.SeverityWarning, Limit: defaultHistoryLimit}
	if env.history.alertQuery != wantAlert {
		t.Errorf("alert query = %+v, want %+v", env.history.alertQuery, wantAlert)
	}
}
