// Package alert implements rule evaluation and alert dispatch: a fixed
// predicate registry is evaluated against a state snapshot each coordinator
// tick, firings pass through rate limiting and deduplication, and surviving
// alerts fan out to the configured channels.
package alert

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/channel"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// historyCap bounds the in-memory recent-alert ring.
const historyCap = 100

// Context is the state snapshot rules evaluate against, assembled by the
// coordinator from the monitors' latest views.
type Context struct {
	Health       model.OverallHealth
	Metrics      map[string]model.MetricPoint
	Errors       model.ErrorCounts
	TradeFailure *model.TradeFailureSignal
	Timestamp    time.Time
}

// Policy holds the suppression settings applied before dispatch.
type Policy struct {
	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	MaxPerWindow     int
	DedupEnabled     bool
	DedupWindow      time.Duration
}

// Store persists dispatched alert events.
type Store interface {
	AppendAlert(model.AlertEvent) model.AlertEvent
}

// Recorder counts dispatched and suppressed alerts.
type Recorder interface {
	RecordAlert()
	RecordSuppressed()
}

// NoOpRecorder is a Recorder that does nothing.
type NoOpRecorder struct{}

var _ Recorder = (*NoOpRecorder)(nil)

// RecordAlert does nothing.
func (*NoOpRecorder) RecordAlert() {}

// RecordSuppressed does nothing.
func (*NoOpRecorder) RecordSuppressed() {}

// Manager owns the rule set, the channel registry and the suppression state.
type Manager struct {
	store      Store
	metrics    Recorder
	policy     Policy
	predicates map[string]Predicate

	mu           sync.Mutex
	rules        []model.AlertRule
	channels     *channel.Registry
	window       map[string][]time.Time
	lastFired    map[string]time.Time
	history      []model.AlertEvent
	tradeFailure *model.TradeFailureSignal
}

// New creates a manager with the fixed predicate registry. A nil recorder
// disables counter recording; a nil registry means no channels until Reload.
func New(store Store, recorder Recorder, policy Policy, rules []model.AlertRule, channels *channel.Registry) *Manager {
	if recorder == nil {
		recorder = &NoOpRecorder{}
	}
	if channels == nil {
		channels = channel.NewRegistry()
	}
	return &Manager{
		store:      store,
		metrics:    recorder,
		policy:     policy,
		predicates: Predicates(),
		rules:      rules,
		channels:   channels,
		window:     map[string][]time.Time{},
		lastFired:  map[string]time.Time{},
	}
}

// SignalTradeFailure raises the external trade-failure flag. The next
// Evaluate pass consumes and clears it.
func (m *Manager) SignalTradeFailure(component, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeFailure = &model.TradeFailureSignal{
		Component: component,
		Reason:    reason,
		RaisedAt:  time.Now().UTC(),
	}
	slog.Info("Trade failure signal raised", "component", component, "reason", reason)
}

// Evaluate runs every enabled rule against the snapshot and dispatches the
// firings that survive rate limiting and deduplication. It returns the
// dispatched events.
func (m *Manager) Evaluate(ctx context.Context, actx Context) []model.AlertEvent {
	if actx.Timestamp.IsZero() {
		actx.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	rules := make([]model.AlertRule, len(m.rules))
	copy(rules, m.rules)
	registry := m.channels
	if m.tradeFailure != nil {
		actx.TradeFailure = m.tradeFailure
		m.tradeFailure = nil
	}
	m.mu.Unlock()

	var dispatched []model.AlertEvent
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		predicate, ok := m.predicates[rule.ID]
		if !ok {
			slog.Warn("No predicate registered for rule", "rule_id", rule.ID)
			continue
		}
		finding, firing := predicate(actx)
		if !firing {
			continue
		}
		if event, ok := m.dispatch(ctx, rule, finding, actx.Timestamp, registry); ok {
			dispatched = append(dispatched, event)
		}
	}
	return dispatched
}

// dispatch applies the suppression policies and, if the firing survives,
// sends the message to every channel enabled for the rule's severity. Each
// send is independent; a failed channel is recorded as not notified.
func (m *Manager) dispatch(ctx context.Context, rule model.AlertRule, finding Finding, now time.Time, registry *channel.Registry) (model.AlertEvent, bool) {
	m.mu.Lock()
	if m.policy.RateLimitEnabled {
		cutoff := now.Add(-m.policy.RateLimitWindow)
		kept := m.window[rule.ID][:0]
		for _, ts := range m.window[rule.ID] {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		m.window[rule.ID] = kept
		if len(kept) >= m.policy.MaxPerWindow {
			m.mu.Unlock()
			m.metrics.RecordSuppressed()
			slog.Debug("Alert suppressed by rate limit", "rule_id", rule.ID)
			return model.AlertEvent{}, false
		}
	}
	if m.policy.DedupEnabled {
		if last, ok := m.lastFired[rule.ID]; ok && now.Sub(last) < m.policy.DedupWindow {
			m.mu.Unlock()
			m.metrics.RecordSuppressed()
			slog.Debug("Alert suppressed as duplicate", "rule_id", rule.ID)
			return model.AlertEvent{}, false
		}
	}
	if m.policy.RateLimitEnabled {
		m.window[rule.ID] = append(m.window[rule.ID], now)
	}
	m.lastFired[rule.ID] = now
	m.mu.Unlock()

	msg := model.Message{
		Title:     rule.Name,
		Text:      rule.Description,
		Details:   finding.Detail,
		Severity:  rule.Severity,
		Timestamp: now,
	}

	targets := registry.ForSeverity(rule.Severity)
	notified := make([]string, 0, len(targets))
	var notifiedMu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range targets {
		wg.Add(1)
		go func(ch channel.Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("Failed to send alert",
					"rule_id", rule.ID,
					"channel", ch.Name(),
					"error", err)
				return
			}
			notifiedMu.Lock()
			notified = append(notified, ch.Name())
			notifiedMu.Unlock()
		}(ch)
	}
	wg.Wait()
	sort.Strings(notified)

	event := model.AlertEvent{
		ID:        uuid.NewString(),
		Rule:      rule.Name,
		Severity:  rule.Severity,
		Message:   finding.Detail,
		Component: finding.Component,
		Context:   map[string]any{"rule_id": rule.ID, "description": rule.Description},
		Channels:  notified,
		Timestamp: now,
	}
	event = m.store.AppendAlert(event)

	m.mu.Lock()
	m.history = append(m.history, event)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
	m.mu.Unlock()

	m.metrics.RecordAlert()
	slog.Info("Alert dispatched",
		"rule_id", rule.ID,
		"severity", rule.Severity,
		"channels", notified)
	return event, true
}

// History returns up to limit recent events, newest first. limit <= 0 means
// the whole ring.
func (m *Manager) History(limit int) []model.AlertEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.AlertEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.history[i])
	}
	return out
}

// Rules returns a copy of the current rule set.
func (m *Manager) Rules() []model.AlertRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AlertRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// TestChannels sends a synthetic info message to every configured channel and
// returns the per-channel outcome.
func (m *Manager) TestChannels(ctx context.Context) map[string]error {
	m.mu.Lock()
	registry := m.channels
	m.mu.Unlock()

	msg := model.Message{
		Title:     "Monitor channel test",
		Text:      "This is a test message from the monitoring service.",
		Severity:  model.SeverityInfo,
		Timestamp: time.Now().UTC(),
	}

	results := make(map[string]error)
	var resultsMu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range registry.All() {
		wg.Add(1)
		go func(ch channel.Channel) {
			defer wg.Done()
			err := ch.Send(ctx, msg)
			resultsMu.Lock()
			results[ch.Name()] = err
			resultsMu.Unlock()
		}(ch)
	}
	wg.Wait()
	return results
}

// Reload atomically replaces the rule set and the channel registry.
func (m *Manager) Reload(rules []model.AlertRule, channels *channel.Registry) {
	if channels == nil {
		channels = channel.NewRegistry()
	}
	m.mu.Lock()
	m.rules = rules
	m.channels = channels
	m.mu.Unlock()
	slog.Info("Alert configuration reloaded",
		"rules", len(rules),
		"channels", len(channels.Names()))
}
