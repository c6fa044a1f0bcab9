// Package perf implements the performance monitor: each tick samples host
// utilization, probes the backend for latency and counters, and reads the
// agent liveness counters. The sub-steps are independent and a failure in
// one never aborts the others.
package perf

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Store persists metric points.
type Store interface {
	AppendMetric(model.MetricPoint) model.MetricPoint
}

// Recorder counts probe checks and failures.
type Recorder interface {
	RecordCheck(latency time.Duration)
	RecordCheckFailure()
}

// NoOpRecorder is a Recorder that does nothing.
type NoOpRecorder struct{}

var _ Recorder = (*NoOpRecorder)(nil)

// RecordCheck does nothing.
func (*NoOpRecorder) RecordCheck(time.Duration) {}

// RecordCheckFailure does nothing.
func (*NoOpRecorder) RecordCheckFailure() {}

// Monitor runs the performance sub-steps and owns the latest value of every
// metric key.
type Monitor struct {
	sampler  *HostSampler
	probe    *BackendProbe
	liveness *LivenessCounters
	store    Store
	metrics  Recorder

	mu     sync.RWMutex
	latest map[string]model.MetricPoint
}

// New creates a monitor. probe and liveness may be nil when the component is
// not configured; a nil recorder disables counter recording.
func New(store Store, recorder Recorder, sampler *HostSampler, probe *BackendProbe, liveness *LivenessCounters) *Monitor {
	if recorder == nil {
		recorder = &NoOpRecorder{}
	}
	return &Monitor{
		sampler:  sampler,
		probe:    probe,
		liveness: liveness,
		store:    store,
		metrics:  recorder,
		latest:   map[string]model.MetricPoint{},
	}
}

// Tick runs all sub-steps, persists every collected point and returns them.
// Failures are logged and skipped, never raised.
func (m *Monitor) Tick(ctx context.Context) []model.MetricPoint {
	now := time.Now().UTC()
	var points []model.MetricPoint

	if m.sampler != nil {
		cpu, err := m.sampler.CPUPercent()
		switch {
		case err == nil:
			points = append(points, model.MetricPoint{
				Component: "system",
				Name:      "cpu_percent",
				Value:     cpu,
				Unit:      "percent",
				Timestamp: now,
			})
		case !errors.Is(err, ErrNoBaseline):
			slog.Warn("Failed to sample cpu", "error", err)
		}

		mem, err := m.sampler.MemoryPercent()
		if err != nil {
			slog.Warn("Failed to sample memory", "error", err)
		} else {
			points = append(points, model.MetricPoint{
				Component: "system",
				Name:      "memory_percent",
				Value:     mem,
				Unit:      "percent",
				Timestamp: now,
			})
		}
	}

	if m.probe != nil {
		started := time.Now()
		pts, err := m.probe.Probe(ctx)
		m.metrics.RecordCheck(time.Since(started))
		if err != nil {
			m.metrics.RecordCheckFailure()
			slog.Warn("Failed to probe backend metrics",
				"component", m.probe.component,
				"error", err)
		}
		points = append(points, pts...)
	}

	if m.liveness != nil {
		pts, err := m.liveness.Read()
		if err != nil {
			slog.Warn("Failed to read liveness counters",
				"component", m.liveness.component,
				"error", err)
		}
		points = append(points, pts...)
	}

	for i, pt := range points {
		points[i] = m.store.AppendMetric(pt)
	}

	m.mu.Lock()
	for _, pt := range points {
		m.latest[pt.Key()] = pt
	}
	m.mu.Unlock()

	slog.Debug("Performance tick completed", "points", len(points))
	return points
}

// Latest returns a copy of the most recent value of every metric key.
func (m *Monitor) Latest() map[string]model.MetricPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]model.MetricPoint, len(m.latest))
	for key, pt := range m.latest {
		out[key] = pt
	}
	return out
}
