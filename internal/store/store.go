// Package store implements the monitor's event store: capped, append-only
// streams for health snapshots, performance metrics, alert events and system
// logs, plus per-component uptime records. Every stream is held in memory and
// mirrored to its own JSON file with atomic replace-on-write; persistence
// failures never propagate to callers.
package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Stream file names under the data directory.
const (
	StreamHealth  = "health"
	StreamMetrics = "metrics"
	StreamAlerts  = "alerts"
	StreamLogs    = "logs"
	StreamUptime  = "uptime"
)

// Caps holds the per-stream record caps. A zero or negative cap leaves the
// stream unbounded.
type Caps struct {
	Health  int
	Metrics int
	Alerts  int
	Logs    int
}

// Store is the event store. All methods are safe for concurrent use; each
// stream has its own lock, so writers to different streams never contend.
type Store struct {
	dir string

	health  *stream[model.HealthSnapshot]
	metrics *stream[model.MetricPoint]
	alerts  *stream[model.AlertEvent]
	logs    *stream[model.LogEntry]

	uptimeMu sync.Mutex
	uptime   map[string]model.UptimeRecord
}

// Open creates the data directory if needed, restores all streams from disk
// and returns the store. Open never fails: if the directory or a stream file
// is unusable the store runs with whatever loaded, persisting best-effort.
func Open(dir string, caps Caps) *Store {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create data directory, persistence will be unavailable",
			"dir", dir, "error", err)
	}
	s := &Store{
		dir:     dir,
		health:  newStream[model.HealthSnapshot](dir, StreamHealth, caps.Health),
		metrics: newStream[model.MetricPoint](dir, StreamMetrics, caps.Metrics),
		alerts:  newStream[model.AlertEvent](dir, StreamAlerts, caps.Alerts),
		logs:    newStream[model.LogEntry](dir, StreamLogs, caps.Logs),
		uptime:  make(map[string]model.UptimeRecord),
	}
	s.health.load(func(r model.HealthSnapshot) uint64 { return r.ID })
	s.metrics.load(func(r model.MetricPoint) uint64 { return r.ID })
	s.alerts.load(func(model.AlertEvent) uint64 { return 0 })
	s.logs.load(func(r model.LogEntry) uint64 { return r.ID })
	s.loadUptime()
	return s
}

// AppendHealth appends a health snapshot and returns it with its assigned ID.
func (s *Store) AppendHealth(snap model.HealthSnapshot) model.HealthSnapshot {
	return s.health.append(snap, func(r *model.HealthSnapshot, id uint64) { r.ID = id })
}

// AppendMetric appends a metric point and returns it with its assigned ID.
func (s *Store) AppendMetric(p model.MetricPoint) model.MetricPoint {
	return s.metrics.append(p, func(r *model.MetricPoint, id uint64) { r.ID = id })
}

// AppendAlert appends an alert event. Alert events keep their caller-assigned
// ID; the stream sequence only orders them.
func (s *Store) AppendAlert(ev model.AlertEvent) model.AlertEvent {
	return s.alerts.append(ev, func(*model.AlertEvent, uint64) {})
}

// AppendLog appends a classified log entry and returns it with its assigned ID.
func (s *Store) AppendLog(entry model.LogEntry) model.LogEntry {
	return s.logs.append(entry, func(r *model.LogEntry, id uint64) { r.ID = id })
}

// HealthQuery filters QueryHealth results. Zero values match everything.
type HealthQuery struct {
	Component string
	Status    model.Status
	Limit     int
}

// QueryHealth returns matching health snapshots, newest first.
func (s *Store) QueryHealth(q HealthQuery) []model.HealthSnapshot {
	return s.health.query(q.Limit, func(r model.HealthSnapshot) bool {
		if q.Component != "" && r.Component != q.Component {
			return false
		}
		if q.Status != "" && r.Status != q.Status {
			return false
		}
		return true
	})
}

// MetricQuery filters QueryMetrics results. Zero values match everything.
type MetricQuery struct {
	Component string
	Name      string
	Limit     int
}

// QueryMetrics returns matching metric points, newest first.
func (s *Store) QueryMetrics(q MetricQuery) []model.MetricPoint {
	return s.metrics.query(q.Limit, func(r model.MetricPoint) bool {
		if q.Component != "" && r.Component != q.Component {
			return false
		}
		if q.Name != "" && r.Name != q.Name {
			return false
		}
		return true
	})
}

// AlertQuery filters QueryAlerts results. Zero values match everything.
type AlertQuery struct {
	Rule     string
	Severity model.Severity
	Limit    int
}

// QueryAlerts returns matching alert events, newest first.
func (s *Store) QueryAlerts(q AlertQuery) []model.AlertEvent {
	return s.alerts.query(q.Limit, func(r model.AlertEvent) bool {
		if q.Rule != "" && r.Rule != q.Rule {
			return false
		}
		if q.Severity != "" && r.Severity != q.Severity {
			return false
		}
		return true
	})
}

// LogQuery filters QueryLogs results. Zero values match everything.
type LogQuery struct {
	Component string
	Level     model.Level
	Limit     int
}

// QueryLogs returns matching log entries, newest first.
func (s *Store) QueryLogs(q LogQuery) []model.LogEntry {
	return s.logs.query(q.Limit, func(r model.LogEntry) bool {
		if q.Component != "" && r.Component != q.Component {
			return false
		}
		if q.Level != "" && r.Level != q.Level {
			return false
		}
		return true
	})
}

// UpdateUptime applies mutate to the component's uptime record under the
// store lock, creating the record on first use, then persists the stream.
func (s *Store) UpdateUptime(component string, mutate func(*model.UptimeRecord)) model.UptimeRecord {
	s.uptimeMu.Lock()
	defer s.uptimeMu.Unlock()
	rec, ok := s.uptime[component]
	if !ok {
		rec = model.UptimeRecord{Component: component}
	}
	mutate(&rec)
	s.uptime[component] = rec
	s.persistUptimeLocked()
	return rec
}

// UptimeFor returns the uptime record for one component.
func (s *Store) UptimeFor(component string) (model.UptimeRecord, bool) {
	s.uptimeMu.Lock()
	defer s.uptimeMu.Unlock()
	rec, ok := s.uptime[component]
	return rec, ok
}

// Uptime returns all uptime records ordered by component name.
func (s *Store) Uptime() []model.UptimeRecord {
	s.uptimeMu.Lock()
	defer s.uptimeMu.Unlock()
	out := make([]model.UptimeRecord, 0, len(s.uptime))
	for _, rec := range s.uptime {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// Purge drops records older than maxAge from every stream except uptime and
// returns the total number removed.
func (s *Store) Purge(maxAge time.Duration, now time.Time) int {
	cutoff := now.Add(-maxAge)
	removed := 0
	removed += s.health.purge(cutoff, func(r model.HealthSnapshot) time.Time { return r.Timestamp })
	removed += s.metrics.purge(cutoff, func(r model.MetricPoint) time.Time { return r.Timestamp })
	removed += s.alerts.purge(cutoff, func(r model.AlertEvent) time.Time { return r.Timestamp })
	removed += s.logs.purge(cutoff, func(r model.LogEntry) time.Time { return r.Timestamp })
	if removed > 0 {
		slog.Info("Purged expired records", "removed", removed, "cutoff", cutoff)
	}
	return removed
}

// Counts reports the in-memory length of each purgeable stream.
func (s *Store) Counts() map[string]int {
	return map[string]int{
		StreamHealth:  s.health.len(),
		StreamMetrics: s.metrics.len(),
		StreamAlerts:  s.alerts.len(),
		StreamLogs:    s.logs.len(),
	}
}

func (s *Store) loadUptime() {
	st := newStream[model.UptimeRecord](s.dir, StreamUptime, 0)
	st.load(func(model.UptimeRecord) uint64 { return 0 })
	s.uptimeMu.Lock()
	defer s.uptimeMu.Unlock()
	for _, rec := range st.recs {
		s.uptime[rec.Component] = rec
	}
}

func (s *Store) persistUptimeLocked() {
	recs := make([]model.UptimeRecord, 0, len(s.uptime))
	for _, rec := range s.uptime {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Component < recs[j].Component })
	path := filepath.Join(s.dir, StreamUptime+".json")
	if err := writeFileAtomic(path, recs); err != nil {
		slog.Warn("Failed to persist stream", "stream", StreamUptime, "error", err)
	}
}
