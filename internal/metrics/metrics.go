// Package metrics tracks the monitor's own operational counters and
// optionally reports them to Redis for fleet-wide visibility. Consumers that
// only need a subset of the recording surface declare their own narrow
// interface and take a *Collector.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MetricsKeyPrefix is the Redis key prefix for service metrics.
	MetricsKeyPrefix = "metrics:"
	// MetricsTTL is how long metrics stay in Redis if not refreshed.
	MetricsTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing metrics to Redis.
	DefaultReportInterval = 30 * time.Second
)

// ServiceMetrics is one snapshot of the monitor's operational counters.
type ServiceMetrics struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	// Counters, monotonically increasing since start.
	ChecksRun        uint64 `json:"checks_run"`
	CheckFailures    uint64 `json:"check_failures"`
	LinesClassified  uint64 `json:"lines_classified"`
	LinesDropped     uint64 `json:"lines_dropped"`
	AlertsDispatched uint64 `json:"alerts_dispatched"`
	AlertsSuppressed uint64 `json:"alerts_suppressed"`
	BroadcastPushes  uint64 `json:"broadcast_pushes"`

	// Rate over the last report interval.
	ChecksPerSecond float64 `json:"checks_per_second"`

	// All-time average check latency in nanoseconds.
	AvgCheckLatencyNs float64 `json:"avg_check_latency_ns"`

	// Service-specific counters (flexible map).
	CustomCounters map[string]uint64 `json:"custom_counters,omitempty"`
}

// Collector collects the monitor's counters. All Record methods are safe for
// concurrent use. With a nil Redis client the collector still aggregates and
// serves snapshots; it just never reports.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	checksRun        atomic.Uint64
	checkFailures    atomic.Uint64
	linesClassified  atomic.Uint64
	linesDropped     atomic.Uint64
	alertsDispatched atomic.Uint64
	alertsSuppressed atomic.Uint64
	broadcastPushes  atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	rateMu         sync.Mutex
	lastReportTime time.Time
	lastChecksRun  uint64

	customMu       sync.RWMutex
	customCounters map[string]*atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a collector. redisClient may be nil.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		lastReportTime: time.Now().UTC(),
		customCounters: make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing metrics to Redis.
func (c *Collector) SetReportInterval(interval time.Duration) {
	if interval > 0 {
		c.reportInterval = interval
	}
}

// Start begins periodic reporting to Redis until ctx is canceled or Stop is
// called. A final write happens on shutdown.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.writeMetrics(context.Background())
				return
			case <-c.stopCh:
				c.writeMetrics(context.Background())
				return
			case <-ticker.C:
				c.writeMetrics(ctx)
			}
		}
	}()
}

// Stop stops the reporting goroutine and waits for its final write.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RecordCheck counts one completed component check and its latency.
func (c *Collector) RecordCheck(latency time.Duration) {
	c.checksRun.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordCheckFailure counts a check that ended critical for transport reasons.
func (c *Collector) RecordCheckFailure() {
	c.checkFailures.Add(1)
}

// RecordLine counts one classified log line.
func (c *Collector) RecordLine() {
	c.linesClassified.Add(1)
}

// RecordLineDropped counts one unparseable log line.
func (c *Collector) RecordLineDropped() {
	c.linesDropped.Add(1)
}

// RecordAlert counts one dispatched alert.
func (c *Collector) RecordAlert() {
	c.alertsDispatched.Add(1)
}

// RecordSuppressed counts one rate-limited or deduplicated firing.
func (c *Collector) RecordSuppressed() {
	c.alertsSuppressed.Add(1)
}

// RecordBroadcast counts one websocket broadcast.
func (c *Collector) RecordBroadcast() {
	c.broadcastPushes.Add(1)
}

// IncrementCustom increments a custom counter by name.
func (c *Collector) IncrementCustom(name string) {
	c.AddCustom(name, 1)
}

// AddCustom adds a value to a custom counter.
func (c *Collector) AddCustom(name string, value uint64) {
	c.customMu.RLock()
	counter, exists := c.customCounters[name]
	c.customMu.RUnlock()

	if !exists {
		c.customMu.Lock()
		if counter, exists = c.customCounters[name]; !exists {
			counter = &atomic.Uint64{}
			c.customCounters[name] = counter
		}
		c.customMu.Unlock()
	}
	counter.Add(value)
}

// GetSnapshot returns current metrics without writing to Redis.
func (c *Collector) GetSnapshot() *ServiceMetrics {
	now := time.Now().UTC()
	checks := c.checksRun.Load()

	c.rateMu.Lock()
	elapsed := now.Sub(c.lastReportTime).Seconds()
	lastChecks := c.lastChecksRun
	c.rateMu.Unlock()
	var rate float64
	if elapsed > 0 {
		rate = float64(checks-lastChecks) / elapsed
	}

	var avgLatencyNs float64
	if count := c.latencyCount.Load(); count > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(count)
	}

	c.customMu.RLock()
	custom := make(map[string]uint64, len(c.customCounters))
	for name, counter := range c.customCounters {
		custom[name] = counter.Load()
	}
	c.customMu.RUnlock()

	return &ServiceMetrics{
		ServiceName:       c.serviceName,
		StartedAt:         c.startedAt,
		LastUpdated:       now,
		ChecksRun:         checks,
		CheckFailures:     c.checkFailures.Load(),
		LinesClassified:   c.linesClassified.Load(),
		LinesDropped:      c.linesDropped.Load(),
		AlertsDispatched:  c.alertsDispatched.Load(),
		AlertsSuppressed:  c.alertsSuppressed.Load(),
		BroadcastPushes:   c.broadcastPushes.Load(),
		ChecksPerSecond:   rate,
		AvgCheckLatencyNs: avgLatencyNs,
		CustomCounters:    custom,
	}
}

// writeMetrics writes current metrics to Redis.
func (c *Collector) writeMetrics(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snapshot := c.GetSnapshot()

	c.rateMu.Lock()
	c.lastReportTime = snapshot.LastUpdated
	c.lastChecksRun = snapshot.ChecksRun
	c.rateMu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := MetricsKeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, MetricsTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}

// ConnectRedis creates and validates a Redis connection.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}
