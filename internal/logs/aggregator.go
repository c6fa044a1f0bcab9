// Package logs implements the log aggregator: producers feed raw lines into
// a channel, one consumer classifies them into structured entries, persists
// them and maintains a rolling view of the error rate.
package logs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

const (
	// cleanupInterval is how often stale error timestamps are pruned.
	cleanupInterval = 60 * time.Second
	// errorRetention is how long an error timestamp participates in counts.
	errorRetention = time.Hour
	// recentWindow is the short error-rate window.
	recentWindow = 10 * time.Minute
	// lineBuffer bounds the producer channel; a full buffer blocks producers,
	// never the rest of the monitor.
	lineBuffer = 256
)

// Store persists classified entries.
type Store interface {
	AppendLog(model.LogEntry) model.LogEntry
}

// Recorder counts classified and dropped lines.
type Recorder interface {
	RecordLine()
	RecordLineDropped()
}

// NoOpRecorder is a Recorder that does nothing.
type NoOpRecorder struct{}

var _ Recorder = (*NoOpRecorder)(nil)

// RecordLine does nothing.
func (*NoOpRecorder) RecordLine() {}

// RecordLineDropped does nothing.
func (*NoOpRecorder) RecordLineDropped() {}

// Aggregator consumes raw log lines, classifies them and tracks error
// timestamps for the rolling counts.
type Aggregator struct {
	store            Store
	metrics          Recorder
	defaultComponent string

	lines chan string

	mu         sync.Mutex
	errorTimes []time.Time
}

// New creates an aggregator. A nil recorder disables counter recording.
func New(store Store, recorder Recorder, defaultComponent string) *Aggregator {
	if recorder == nil {
		recorder = &NoOpRecorder{}
	}
	if defaultComponent == "" {
		defaultComponent = "app"
	}
	return &Aggregator{
		store:            store,
		metrics:          recorder,
		defaultComponent: defaultComponent,
		lines:            make(chan string, lineBuffer),
	}
}

// Lines returns the channel producers write raw lines to.
func (a *Aggregator) Lines() chan<- string {
	return a.lines
}

// Run consumes lines and prunes stale error timestamps until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context) {
	slog.Info("Starting log aggregator", "default_component", a.defaultComponent)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Log aggregator stopped")
			return
		case <-ticker.C:
			a.cleanup(time.Now())
		case line := <-a.lines:
			a.process(line)
		}
	}
}

// process classifies one line; unparseable lines are dropped silently.
func (a *Aggregator) process(line string) {
	entry, ok := a.classify(line)
	if !ok {
		a.metrics.RecordLineDropped()
		return
	}
	a.record(entry)
}

// record persists the entry and tracks error-level timestamps.
func (a *Aggregator) record(entry model.LogEntry) model.LogEntry {
	stored := a.store.AppendLog(entry)
	if entry.Level.IsError() {
		a.mu.Lock()
		a.errorTimes = append(a.errorTimes, entry.Timestamp)
		a.mu.Unlock()
	}
	a.metrics.RecordLine()
	return stored
}

// Inject records an externally submitted entry through the same persistence
// and counting path as consumed lines.
func (a *Aggregator) Inject(component, level, message string, context map[string]any) model.LogEntry {
	if component == "" {
		component = a.defaultComponent
	}
	entry := model.LogEntry{
		Component: component,
		Level:     normalizeLevel(level),
		Message:   message,
		Context:   context,
		Timestamp: time.Now().UTC(),
	}
	return a.record(entry)
}

// ErrorCounts prunes stale timestamps and returns the rolling counts.
func (a *Aggregator) ErrorCounts() model.ErrorCounts {
	return a.cleanup(time.Now())
}

// cleanup drops error timestamps older than the retention window and
// recomputes both counts.
func (a *Aggregator) cleanup(now time.Time) model.ErrorCounts {
	hourCutoff := now.Add(-errorRetention)
	recentCutoff := now.Add(-recentWindow)

	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.errorTimes[:0]
	counts := model.ErrorCounts{}
	for _, ts := range a.errorTimes {
		if ts.Before(hourCutoff) {
			continue
		}
		kept = append(kept, ts)
		counts.LastHour++
		if ts.After(recentCutoff) {
			counts.Last10Minutes++
		}
	}
	a.errorTimes = kept
	return counts
}
