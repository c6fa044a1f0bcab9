package alert

import (
	"fmt"
	"sort"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Thresholds baked into the rule registry.
const (
	staleHeartbeatSeconds = 120.0
	latencySpikeMS        = 2000.0
	errorRateLimit        = 5
	memoryUsageLimit      = 80.0
)

// Finding is what a firing predicate reports: the component concerned and a
// detail line for the message body.
type Finding struct {
	Component string
	Detail    string
}

// Predicate decides whether a rule fires against the evaluation context.
type Predicate func(Context) (Finding, bool)

// Predicates returns the fixed rule registry keyed by rule ID.
func Predicates() map[string]Predicate {
	return map[string]Predicate{
		"component-downtime":        componentDowntime,
		"api-latency-spike":         apiLatencySpike,
		"high-error-rate":           highErrorRate,
		"circuit-breaker-triggered": circuitBreakerTriggered,
		"high-memory-usage":         highMemoryUsage,
		"trade-execution-failure":   tradeExecutionFailure,
	}
}

// componentNames returns the component keys in stable order.
func componentNames(health model.OverallHealth) []string {
	names := make([]string, 0, len(health.Components))
	for name := range health.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func componentDowntime(ctx Context) (Finding, bool) {
	for _, name := range componentNames(ctx.Health) {
		snap := ctx.Health.Components[name]
		if snap.Status == model.StatusCritical {
			return Finding{
				Component: name,
				Detail:    fmt.Sprintf("component %s is critical", name),
			}, true
		}
		if age, ok := snap.Details["heartbeat_age_seconds"].(float64); ok && age > staleHeartbeatSeconds {
			return Finding{
				Component: name,
				Detail:    fmt.Sprintf("%s heartbeat is %.0fs old", name, age),
			}, true
		}
	}
	return Finding{}, false
}

func apiLatencySpike(ctx Context) (Finding, bool) {
	pt, ok := ctx.Metrics["backend.response_time_ms"]
	if !ok || pt.Value <= latencySpikeMS {
		return Finding{}, false
	}
	return Finding{
		Component: pt.Component,
		Detail:    fmt.Sprintf("backend responded in %.0fms", pt.Value),
	}, true
}

func highErrorRate(ctx Context) (Finding, bool) {
	if ctx.Errors.Last10Minutes <= errorRateLimit {
		return Finding{}, false
	}
	return Finding{
		Component: "logs",
		Detail:    fmt.Sprintf("%d errors in the last 10 minutes", ctx.Errors.Last10Minutes),
	}, true
}

func circuitBreakerTriggered(ctx Context) (Finding, bool) {
	for _, name := range componentNames(ctx.Health) {
		snap := ctx.Health.Components[name]
		if active, ok := snap.Details["circuit_breaker_active"].(bool); ok && active {
			return Finding{
				Component: name,
				Detail:    fmt.Sprintf("circuit breaker active on %s", name),
			}, true
		}
	}
	return Finding{}, false
}

func highMemoryUsage(ctx Context) (Finding, bool) {
	pt, ok := ctx.Metrics["system.memory_percent"]
	if !ok || pt.Value <= memoryUsageLimit {
		return Finding{}, false
	}
	return Finding{
		Component: "system",
		Detail:    fmt.Sprintf("memory usage at %.1f%%", pt.Value),
	}, true
}

func tradeExecutionFailure(ctx Context) (Finding, bool) {
	sig := ctx.TradeFailure
	if sig == nil {
		return Finding{}, false
	}
	detail := "trade execution failure reported"
	if sig.Reason != "" {
		detail = fmt.Sprintf("trade execution failure: %s", sig.Reason)
	}
	return Finding{Component: sig.Component, Detail: detail}, true
}
