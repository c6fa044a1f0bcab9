package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

func healthWith(snaps ...model.HealthSnapshot) model.OverallHealth {
	overall := model.OverallHealth{
		Overall:    model.StatusUnknown,
		Components: map[string]model.HealthSnapshot{},
		Timestamp:  time.Now().UTC(),
	}
	for _, snap := range snaps {
		overall.Components[snap.Component] = snap
		overall.Overall = model.WorseOf(overall.Overall, snap.Status)
	}
	return overall
}

func metricsWith(points ...model.MetricPoint) map[string]model.MetricPoint {
	out := map[string]model.MetricPoint{}
	for _, pt := range points {
		out[pt.Key()] = pt
	}
	return out
}

func TestComponentDowntime(t *testing.T) {
	tests := []struct {
		name          string
		ctx           Context
		want          bool
		wantComponent string
	}{
		{
			name: "critical component",
			ctx: Context{Health: healthWith(
				model.HealthSnapshot{Component: "backend", Status: model.StatusCritical},
				model.HealthSnapshot{Component: "agent", Status: model.StatusHealthy},
			)},
			want:          true,
			wantComponent: "backend",
		},
		{
			name: "stale heartbeat without critical status",
			ctx: Context{Health: healthWith(
				model.HealthSnapshot{
					Component: "agent",
					Status:    model.StatusWarning,
					Details:   map[string]any{"heartbeat_age_seconds": 150.0},
				},
			)},
			want:          true,
			wantComponent: "agent",
		},
		{
			name: "all healthy",
			ctx: Context{Health: healthWith(
				model.HealthSnapshot{Component: "backend", Status: model.StatusHealthy},
			)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding, got := componentDowntime(tt.ctx)
			if got != tt.want {
				t.Fatalf("componentDowntime() = %v, want %v", got, tt.want)
			}
			if got && finding.Component != tt.wantComponent {
				t.Errorf("Component = %q, want %q", finding.Component, tt.wantComponent)
			}
		})
	}
}

func TestAPILatencySpike(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  bool
	}{
		{"spike", 2500, true},
		{"at threshold", 2000, false},
		{"normal", 120, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Context{Metrics: metricsWith(model.MetricPoint{
				Component: "backend", Name: "response_time_ms", Value: tt.value,
			})}
			if _, got := apiLatencySpike(ctx); got != tt.want {
				t.Errorf("apiLatencySpike() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("metric missing", func(t *testing.T) {
		if _, got := apiLatencySpike(Context{}); got {
			t.Error("apiLatencySpike() = true with no metrics")
		}
	})
}

func TestHighErrorRate(t *testing.T) {
	if _, got := highErrorRate(Context{Errors: model.ErrorCounts{Last10Minutes: 6}}); !got {
		t.Error("highErrorRate() = false at 6 errors, want true")
	}
	finding, got := highErrorRate(Context{Errors: model.ErrorCounts{Last10Minutes: 5}})
	if got {
		t.Errorf("highErrorRate() = true at 5 errors (%s), want false", finding.Detail)
	}
}

func TestCircuitBreakerTriggered(t *testing.T) {
	ctx := Context{Health: healthWith(
		model.HealthSnapshot{Component: "backend", Status: model.StatusHealthy},
		model.HealthSnapshot{
			Component: "agent",
			Status:    model.StatusWarning,
			Details:   map[string]any{"circuit_breaker_active": true},
		},
	)}
	finding, got := circuitBreakerTriggered(ctx)
	if !got {
		t.Fatal("circuitBreakerTriggered() = false, want true")
	}
	if finding.Component != "agent" {
		t.Errorf("Component = %q, want agent", finding.Component)
	}

	ctx = Context{Health: healthWith(
		model.HealthSnapshot{Component: "backend", Status: model.StatusHealthy},
	)}
	if _, got := circuitBreakerTriggered(ctx); got {
		t.Error("circuitBreakerTriggered() = true with no breaker flag")
	}
}

func TestHighMemoryUsage(t *testing.T) {
	ctx := Context{Metrics: metricsWith(model.MetricPoint{
		Component: "system", Name: "memory_percent", Value: 85,
	})}
	finding, got := highMemoryUsage(ctx)
	if !got {
		t.Fatal("highMemoryUsage() = false at 85%, want true")
	}
	if !strings.Contains(finding.Detail, "85.0%") {
		t.Errorf("Detail = %q, want mention of 85.0%%", finding.Detail)
	}

	ctx = Context{Metrics: metricsWith(model.MetricPoint{
		Component: "system", Name: "memory_percent", Value: 80,
	})}
	if _, got := highMemoryUsage(ctx); got {
		t.Error("highMemoryUsage() = true at 80%, want false")
	}
}

func TestTradeExecutionFailure(t *testing.T) {
	if _, got := tradeExecutionFailure(Context{}); got {
		t.Error("tradeExecutionFailure() = true with no signal")
	}

	ctx := Context{TradeFailure: &model.TradeFailureSignal{
		Component: "agent",
		Reason:    "order rejected by exchange",
	}}
	finding, got := tradeExecutionFailure(ctx)
	if !got {
		t.Fatal("tradeExecutionFailure() = false, want true")
	}
	if finding.Component != "agent" {
		t.Errorf("Component = %q, want agent", finding.Component)
	}
	if !strings.Contains(finding.Detail, "order rejected by exchange") {
		t.Errorf("Detail = %q, want the reason included", finding.Detail)
	}
}
