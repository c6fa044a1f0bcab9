// Package health implements the component health monitor: per-component
// checkers fan out concurrently on each tick, snapshots and uptime
// transitions are persisted, and the latest aggregate view is owned here.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Store persists snapshots and uptime records.
type Store interface {
	AppendHealth(model.HealthSnapshot) model.HealthSnapshot
	UpdateUptime(component string, mutate func(*model.UptimeRecord)) model.UptimeRecord
}

// Recorder counts checks and failed checks.
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

// Monitor runs all component checkers and owns the latest aggregate health.
type Monitor struct {
	checkers []Checker
	store    Store
	metrics  Recorder

	mu     sync.RWMutex
	latest model.OverallHealth
}

// New creates a monitor. A nil recorder disables counter recording.
func New(store Store, recorder Recorder, checkers ...Checker) *Monitor {
	if recorder == nil {
		recorder = &NoOpRecorder{}
	}
	return &Monitor{
		checkers: checkers,
		store:    store,
		metrics:  recorder,
		latest: model.OverallHealth{
			Overall:    model.StatusUnknown,
			Components: map[string]model.HealthSnapshot{},
		},
	}
}

// Tick runs every checker concurrently, waits for all of them to settle,
// persists each snapshot with its uptime transition, and returns the new
// aggregate view. A slow or failing checker never delays the others beyond
// the tick join.
func (m *Monitor) Tick(ctx context.Context) model.OverallHealth {
	now := time.Now().UTC()
	results := make([]model.HealthSnapshot, len(m.checkers))

	var wg sync.WaitGroup
	for i, checker := range m.checkers {
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()
			started := time.Now()
			results[i] = checker.Check(ctx)
			m.metrics.RecordCheck(time.Since(started))
		}(i, checker)
	}
	wg.Wait()

	overall := model.OverallHealth{
		Overall:    model.StatusUnknown,
		Components: make(map[string]model.HealthSnapshot, len(results)),
		Timestamp:  now,
	}
	for _, snap := range results {
		if snap.Status == model.StatusCritical {
			m.metrics.RecordCheckFailure()
		}
		stored := m.store.AppendHealth(snap)
		m.recordUptime(stored.Component, stored.Status, now)
		overall.Components[stored.Component] = stored
		overall.Overall = model.WorseOf(overall.Overall, stored.Status)
	}

	m.mu.Lock()
	m.latest = overall
	m.mu.Unlock()

	slog.Debug("Health tick completed",
		"overall", overall.Overall,
		"components", len(results))
	return overall
}

// recordUptime applies one poll outcome to the component's uptime record.
// Online means status is anything but critical. Cumulative uptime grows by
// the elapsed time between consecutive online polls; the downtime counter
// increments only on an online-to-offline transition.
func (m *Monitor) recordUptime(component string, status model.Status, now time.Time) {
	online := status != model.StatusCritical
	m.store.UpdateUptime(component, func(rec *model.UptimeRecord) {
		wasOnline := rec.Online()
		if online {
			if wasOnline {
				rec.UptimeSeconds += now.Sub(rec.LastOnline).Seconds()
			}
			rec.LastOnline = now
			return
		}
		if wasOnline {
			rec.DowntimeCount++
		}
		rec.LastOffline = now
	})
}

// Latest returns a copy of the most recent aggregate view.
func (m *Monitor) Latest() model.OverallHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.latest
	out.Components = make(map[string]model.HealthSnapshot, len(m.latest.Components))
	for name, snap := range m.latest.Components {
		out.Components[name] = snap
	}
	return out
}
