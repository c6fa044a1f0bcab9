package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/alert"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

type fakeHealth struct {
	mu     sync.Mutex
	ticks  int
	latest model.OverallHealth
}

func (f *fakeHealth) Tick(context.Context) model.OverallHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return f.latest
}

func (f *fakeHealth) Latest() model.OverallHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeHealth) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

type fakePerf struct {
	mu     sync.Mutex
	ticks  int
	latest map[string]model.MetricPoint
}

func (f *fakePerf) Tick(context.Context) []model.MetricPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return nil
}

func (f *fakePerf) Latest() map[string]model.MetricPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakePerf) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

type fakeCounter struct {
	counts model.ErrorCounts
}

func (f *fakeCounter) ErrorCounts() model.ErrorCounts { return f.counts }

type fakeEvaluator struct {
	mu       sync.Mutex
	contexts []alert.Context
	events   []model.AlertEvent
}

func (f *fakeEvaluator) Evaluate(_ context.Context, actx alert.Context) []model.AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, actx)
	return f.events
}

func (f *fakeEvaluator) evaluations() []alert.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alert.Context(nil), f.contexts...)
}

type envelope struct {
	kind string
	data any
}

type fakeHub struct {
	mu   sync.Mutex
	sent []envelope
}

func (f *fakeHub) Broadcast(kind string, data any) {
	f.mu.Lock()
	f.sent = append(f.sent, envelope{kind: kind, data: data})
	f.mu.Unlock()
}

func (f *fakeHub) envelopes() []envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]envelope(nil), f.sent...)
}

type fakePurger struct {
	mu      sync.Mutex
	calls   int
	lastAge time.Duration
	purged  int
}

func (f *fakePurger) Purge(maxAge time.Duration, _ time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastAge = maxAge
	return f.purged
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func testDeps() (Deps, *fakeHealth, *fakePerf, *fakeEvaluator, *fakeHub, *fakePurger) {
	health := &fakeHealth{latest: model.OverallHealth{Overall: model.StatusHealthy}}
	perf := &fakePerf{latest: map[string]model.MetricPoint{}}
	evaluator := &fakeEvaluator{}
	hub := &fakeHub{}
	purger := &fakePurger{}
	deps := Deps{
		Health: health,
		Perf:   perf,
		Logs:   &fakeCounter{counts: model.ErrorCounts{LastHour: 2, Last10Minutes: 1}},
		Alerts: evaluator,
		Hub:    hub,
		Store:  purger,
	}
	return deps, health, perf, evaluator, hub, purger
}

func TestRunFiresEveryLoopImmediately(t *testing.T) {
	deps, health, perf, evaluator, _, purger := testDeps()
	intervals := Intervals{Health: time.Hour, Performance: time.Hour, Evaluate: time.Hour, Purge: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(deps, intervals, 24*time.Hour).Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return health.tickCount() >= 1 })
	waitFor(t, func() bool { return perf.tickCount() >= 1 })
	waitFor(t, func() bool { return len(evaluator.evaluations()) >= 1 })
	waitFor(t, func() bool { return purger.callCount() >= 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestLoopsTickRepeatedly(t *testing.T) {
	deps, health, _, _, _, _ := testDeps()
	intervals := Intervals{Health: 10 * time.Millisecond, Performance: time.Hour, Evaluate: time.Hour, Purge: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(deps, intervals, 24*time.Hour).Run(ctx)

	waitFor(t, func() bool { return health.tickCount() >= 3 })
}

func TestEvaluateAssemblesContextAndBroadcasts(t *testing.T) {
	deps, health, perf, evaluator, hub, _ := testDeps()
	health.latest = model.OverallHealth{
		Overall: model.StatusCritical,
		Components: map[string]model.HealthSnapshot{
			"backend": {Component: "backend", Status: model.StatusCritical},
		},
	}
	perf.latest = map[string]model.MetricPoint{
		"system.memory_percent": {Component: "system", Name: "memory_percent", Value: 91},
	}
	evaluator.events = []model.AlertEvent{
		{ID: "a1", Rule: "Component downtime"},
		{ID: "a2", Rule: "High memory usage"},
	}

	c := New(deps, Intervals{}, 24*time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.evaluate(context.Background(), now)

	evals := evaluator.evaluations()
	if len(evals) != 1 {
		t.Fatalf("evaluations = %d, want 1", len(evals))
	}
	actx := evals[0]
	if actx.Health.Overall != model.StatusCritical {
		t.Errorf("health overall = %q, want critical", actx.Health.Overall)
	}
	if actx.Metrics["system.memory_percent"].Value != 91 {
		t.Errorf("metrics = %+v, want memory_percent 91", actx.Metrics)
	}
	if actx.Errors.LastHour != 2 || actx.Errors.Last10Minutes != 1 {
		t.Errorf("errors = %+v, want {2 1}", actx.Errors)
	}
	if !actx.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", actx.Timestamp, now)
	}

	sent := hub.envelopes()
	if len(sent) != 4 {
		t.Fatalf("envelopes = %d, want 4", len(sent))
	}
	if sent[0].kind != "health" || sent[1].kind != "metrics" {
		t.Errorf("first envelopes = %q, %q, want health, metrics", sent[0].kind, sent[1].kind)
	}
	if sent[2].kind != "alert" || sent[3].kind != "alert" {
		t.Errorf("alert envelopes = %q, %q, want alert, alert", sent[2].kind, sent[3].kind)
	}
	if ev, ok := sent[2].data.(model.AlertEvent); !ok || ev.ID != "a1" {
		t.Errorf("first alert data = %+v, want event a1", sent[2].data)
	}
}

func TestPurgePassesRetentionAge(t *testing.T) {
	deps, _, _, _, _, purger := testDeps()
	purger.purged = 7

	c := New(deps, Intervals{}, 36*time.Hour)
	c.purge(context.Background(), time.Now().UTC())

	if purger.callCount() != 1 {
		t.Fatalf("purge calls = %d, want 1", purger.callCount())
	}
	if purger.lastAge != 36*time.Hour {
		t.Errorf("max age = %v, want 36h", purger.lastAge)
	}
}
