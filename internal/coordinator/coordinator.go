// Package coordinator drives the monitor's periodic work: health polls,
// performance samples, alert evaluation with live broadcast, and retention
// purges. Each concern runs on its own ticker so a slow health check never
// delays a metrics sample.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/alert"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// HealthMonitor polls all component checkers and serves the latest aggregate.
type HealthMonitor interface {
	Tick(ctx context.Context) model.OverallHealth
	Latest() model.OverallHealth
}

// PerfMonitor samples host and backend metrics and serves the latest points.
type PerfMonitor interface {
	Tick(ctx context.Context) []model.MetricPoint
	Latest() map[string]model.MetricPoint
}

// ErrorCounter serves the rolling error-rate counters of the log aggregator.
type ErrorCounter interface {
	ErrorCounts() model.ErrorCounts
}

// Evaluator runs all alert rules against one evaluation context.
type Evaluator interface {
	Evaluate(ctx context.Context, actx alert.Context) []model.AlertEvent
}

// Broadcaster pushes an envelope to all live subscribers.
type Broadcaster interface {
	Broadcast(kind string, data any)
}

// Purger drops persisted events older than maxAge.
type Purger interface {
	Purge(maxAge time.Duration, now time.Time) int
}

// Deps carries the components the coordinator drives.
type Deps struct {
	Health HealthMonitor
	Perf   PerfMonitor
	Logs   ErrorCounter
	Alerts Evaluator
	Hub    Broadcaster
	Store  Purger
}

// Intervals holds the period of each loop. All must be positive.
type Intervals struct {
	Health      time.Duration
	Performance time.Duration
	Evaluate    time.Duration
	Purge       time.Duration
}

// Coordinator owns the periodic loops. Create with New and drive with Run.
type Coordinator struct {
	deps      Deps
	intervals Intervals
	maxAge    time.Duration
}

// New creates a coordinator. maxAge bounds how long persisted events are
// retained across purge passes.
func New(deps Deps, intervals Intervals, maxAge time.Duration) *Coordinator {
	return &Coordinator{
		deps:      deps,
		intervals: intervals,
		maxAge:    maxAge,
	}
}

// Run starts all loops and blocks until ctx is canceled. Every loop fires
// once immediately so the monitor serves real state right after startup.
func (c *Coordinator) Run(ctx context.Context) {
	slog.Info("Starting monitor loops",
		"health_interval", c.intervals.Health,
		"performance_interval", c.intervals.Performance,
		"evaluate_interval", c.intervals.Evaluate,
		"purge_interval", c.intervals.Purge,
	)

	var wg sync.WaitGroup
	c.spawn(ctx, &wg, c.intervals.Health, func(ctx context.Context, _ time.Time) {
		c.deps.Health.Tick(ctx)
	})
	c.spawn(ctx, &wg, c.intervals.Performance, func(ctx context.Context, _ time.Time) {
		c.deps.Perf.Tick(ctx)
	})
	c.spawn(ctx, &wg, c.intervals.Evaluate, c.evaluate)
	c.spawn(ctx, &wg, c.intervals.Purge, c.purge)
	wg.Wait()

	slog.Info("Monitor loops stopped")
}

// spawn runs fn immediately and then on every tick until ctx is canceled.
func (c *Coordinator) spawn(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, fn func(context.Context, time.Time)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx, time.Now().UTC())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				fn(ctx, now.UTC())
			}
		}
	}()
}

// evaluate assembles the current state, runs the alert rules against it and
// pushes the live view plus any dispatched alerts to subscribers.
func (c *Coordinator) evaluate(ctx context.Context, now time.Time) {
	actx := alert.Context{
		Health:    c.deps.Health.Latest(),
		Metrics:   c.deps.Perf.Latest(),
		Errors:    c.deps.Logs.ErrorCounts(),
		Timestamp: now,
	}
	events := c.deps.Alerts.Evaluate(ctx, actx)

	c.deps.Hub.Broadcast("health", actx.Health)
	c.deps.Hub.Broadcast("metrics", actx.Metrics)
	for _, ev := range events {
		c.deps.Hub.Broadcast("alert", ev)
	}
}

func (c *Coordinator) purge(_ context.Context, now time.Time) {
	c.deps.Store.Purge(c.maxAge, now)
}
