package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// maxProbeBody caps how much of a probe response body is decoded.
const maxProbeBody = 1 << 20

// Checker probes one component and classifies its status.
type Checker interface {
	Component() string
	Check(ctx context.Context) model.HealthSnapshot
}

// HTTPChecker probes a component over HTTP. Transport failures and non-2xx
// responses are critical; response time above the thresholds escalates to
// warning or critical; a circuit_breaker_active flag in the response body
// escalates a healthy result to warning.
type HTTPChecker struct {
	component  string
	url        string
	warningMS  float64
	criticalMS float64
	client     *http.Client
}

var _ Checker = (*HTTPChecker)(nil)

// NewHTTPChecker creates an HTTP checker with a bounded request timeout.
func NewHTTPChecker(component, url string, timeout time.Duration, warningMS, criticalMS float64) *HTTPChecker {
	return &HTTPChecker{
		component:  component,
		url:        url,
		warningMS:  warningMS,
		criticalMS: criticalMS,
		client:     &http.Client{Timeout: timeout},
	}
}

// Component returns the monitored component name.
func (c *HTTPChecker) Component() string { return c.component }

// Check issues one GET probe and classifies the outcome.
func (c *HTTPChecker) Check(ctx context.Context) model.HealthSnapshot {
	snap := model.HealthSnapshot{
		Component: c.component,
		Status:    model.StatusHealthy,
		Details:   map[string]any{},
		Timestamp: time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		snap.Status = model.StatusCritical
		snap.Details["error"] = err.Error()
		return snap
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(started).Seconds() * 1000
	snap.ResponseTimeMS = &elapsed
	if err != nil {
		snap.Status = model.StatusCritical
		snap.Details["error"] = err.Error()
		return snap
	}
	defer resp.Body.Close()

	snap.Details["status_code"] = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snap.Status = model.StatusCritical
		snap.Details["error"] = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return snap
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProbeBody)).Decode(&body); err == nil {
		for k, v := range body {
			switch v.(type) {
			case float64, bool:
				snap.Details[k] = v
			}
		}
	}

	switch {
	case elapsed > c.criticalMS:
		snap.Status = model.StatusCritical
	case elapsed > c.warningMS:
		snap.Status = model.StatusWarning
	}
	if breaker, _ := snap.Details["circuit_breaker_active"].(bool); breaker && snap.Status == model.StatusHealthy {
		snap.Status = model.StatusWarning
	}
	return snap
}

// HeartbeatChecker reads a liveness file written by a local process. A
// missing or unreadable file, a false liveness flag, or a heartbeat older
// than twice the configured maximum is critical; older than the maximum but
// under twice is warning; the breaker flag escalates healthy to warning.
type HeartbeatChecker struct {
	component string
	path      string
	maxAge    time.Duration
}

var _ Checker = (*HeartbeatChecker)(nil)

// NewHeartbeatChecker creates a liveness-file checker.
func NewHeartbeatChecker(component, path string, maxAge time.Duration) *HeartbeatChecker {
	return &HeartbeatChecker{
		component: component,
		path:      path,
		maxAge:    maxAge,
	}
}

// Component returns the monitored component name.
func (c *HeartbeatChecker) Component() string { return c.component }

// Check reads and classifies the liveness file.
func (c *HeartbeatChecker) Check(ctx context.Context) model.HealthSnapshot {
	snap := model.HealthSnapshot{
		Component: c.component,
		Status:    model.StatusHealthy,
		Details:   map[string]any{},
		Timestamp: time.Now().UTC(),
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		snap.Status = model.StatusCritical
		snap.Details["error"] = fmt.Sprintf("failed to read liveness file: %v", err)
		return snap
	}

	var doc model.LivenessDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		snap.Status = model.StatusCritical
		snap.Details["error"] = fmt.Sprintf("failed to parse liveness file: %v", err)
		return snap
	}

	age := time.Since(doc.LastHeartbeat)
	snap.Details["is_alive"] = doc.IsAlive
	snap.Details["heartbeat_age_seconds"] = age.Seconds()
	if doc.CircuitBreakerActive {
		snap.Details["circuit_breaker_active"] = true
	}
	if doc.SignalsCount != nil {
		snap.Details["signals_count"] = *doc.SignalsCount
	}
	if doc.TradesCount != nil {
		snap.Details["trades_count"] = *doc.TradesCount
	}
	if doc.ErrorsCount != nil {
		snap.Details["errors_count"] = *doc.ErrorsCount
	}

	switch {
	case !doc.IsAlive:
		snap.Status = model.StatusCritical
		snap.Details["error"] = "liveness flag is false"
	case age >= 2*c.maxAge:
		snap.Status = model.StatusCritical
		snap.Details["error"] = fmt.Sprintf("heartbeat is %.0fs old", age.Seconds())
	case age > c.maxAge:
		snap.Status = model.StatusWarning
	case doc.CircuitBreakerActive:
		snap.Status = model.StatusWarning
	}
	return snap
}
