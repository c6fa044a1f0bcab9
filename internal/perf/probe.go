package perf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// maxProbeBody caps how much of a probe response body is decoded.
const maxProbeBody = 1 << 20

// BackendProbe measures the latency of the backend health endpoint and turns
// top-level numeric fields of its JSON body into metric points.
type BackendProbe struct {
	component string
	url       string
	client    *http.Client
}

// NewBackendProbe creates a probe with a bounded request timeout.
func NewBackendProbe(component, url string, timeout time.Duration) *BackendProbe {
	return &BackendProbe{
		component: component,
		url:       url,
		client:    &http.Client{Timeout: timeout},
	}
}

// Probe issues one GET and returns the latency point plus one point per
// numeric body field, in stable name order.
func (p *BackendProbe) Probe(ctx context.Context) ([]model.MetricPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(started).Seconds() * 1000
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	now := time.Now().UTC()
	points := []model.MetricPoint{{
		Component: p.component,
		Name:      "response_time_ms",
		Value:     elapsed,
		Unit:      "ms",
		Timestamp: now,
	}}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProbeBody)).Decode(&body); err != nil {
		return points, nil
	}
	names := make([]string, 0, len(body))
	for name, v := range body {
		if _, ok := v.(float64); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		points = append(points, model.MetricPoint{
			Component: p.component,
			Name:      name,
			Value:     body[name].(float64),
			Timestamp: now,
		})
	}
	return points, nil
}

// LivenessCounters reads the counters a local process reports through its
// liveness file.
type LivenessCounters struct {
	component string
	path      string
}

// NewLivenessCounters creates a reader for the liveness file at path.
func NewLivenessCounters(component, path string) *LivenessCounters {
	return &LivenessCounters{component: component, path: path}
}

// Read returns one point per counter present in the file.
func (l *LivenessCounters) Read() ([]model.MetricPoint, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var doc model.LivenessDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var points []model.MetricPoint
	add := func(name string, v *float64) {
		if v == nil {
			return
		}
		points = append(points, model.MetricPoint{
			Component: l.component,
			Name:      name,
			Value:     *v,
			Unit:      "count",
			Timestamp: now,
		})
	}
	add("signals_count", doc.SignalsCount)
	add("trades_count", doc.TradesCount)
	add("errors_count", doc.ErrorsCount)
	return points, nil
}
