package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// stream is one capped, append-only record sequence backed by a JSON file.
// All mutations persist the full stream; a persistence failure is logged and
// swallowed, the in-memory slice stays authoritative.
type stream[T any] struct {
	name string
	path string
	max  int

	mu   sync.Mutex
	seq  uint64
	recs []T
}

func newStream[T any](dir, name string, max int) *stream[T] {
	return &stream[T]{
		name: name,
		path: filepath.Join(dir, name+".json"),
		max:  max,
	}
}

// load restores the stream from disk. Missing files are a clean start; any
// other failure is logged and the stream starts empty.
func (s *stream[T]) load(seqOf func(T) uint64) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read stream file, starting empty",
				"stream", s.name, "path", s.path, "error", err)
		}
		return
	}
	var recs []T
	if err := json.Unmarshal(data, &recs); err != nil {
		slog.Warn("Failed to decode stream file, starting empty",
			"stream", s.name, "path", s.path, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = recs
	for _, rec := range recs {
		if id := seqOf(rec); id > s.seq {
			s.seq = id
		}
	}
}

// append stamps the next monotonic ID onto rec, appends it, trims the stream
// to its cap and persists. The stamped record is returned.
func (s *stream[T]) append(rec T, stamp func(*T, uint64)) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	stamp(&rec, s.seq)
	s.recs = append(s.recs, rec)
	if s.max > 0 && len(s.recs) > s.max {
		trimmed := make([]T, s.max)
		copy(trimmed, s.recs[len(s.recs)-s.max:])
		s.recs = trimmed
	}
	s.persistLocked()
	return rec
}

// query returns up to limit matching records, newest first. limit <= 0 means
// no limit; a nil match accepts everything.
func (s *stream[T]) query(limit int, match func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0)
	for i := len(s.recs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if match == nil || match(s.recs[i]) {
			out = append(out, s.recs[i])
		}
	}
	return out
}

func (s *stream[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

// purge drops records older than cutoff and persists if anything was removed.
// Returns the number of records dropped.
func (s *stream[T]) purge(cutoff time.Time, at func(T) time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]T, 0, len(s.recs))
	for _, rec := range s.recs {
		if !at(rec).Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(s.recs) - len(kept)
	if removed > 0 {
		s.recs = kept
		s.persistLocked()
	}
	return removed
}

func (s *stream[T]) persistLocked() {
	if err := writeFileAtomic(s.path, s.recs); err != nil {
		slog.Warn("Failed to persist stream", "stream", s.name, "error", err)
	}
}

// writeFileAtomic marshals v and replaces path in one rename so readers never
// observe a partially written file.
func writeFileAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
