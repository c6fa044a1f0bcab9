package logs

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// bracketLine matches "[timestamp] [LEVEL] message" with the level brackets
// optional around the second group.
var bracketLine = regexp.MustCompile(`^\[([^\]]+)\]\s*\[?([A-Za-z]+)\]?[:\s]\s*(.*)$`)

// classify runs the three-stage pipeline over one raw line: JSON object,
// bracketed-timestamp format, keyword fallback. The second return is false
// for lines no stage can handle. A panic anywhere in the pipeline must never
// reach the consumer loop, so classify recovers and reports the line dropped.
func (a *Aggregator) classify(line string) (entry model.LogEntry, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	line = strings.TrimSpace(line)
	if line == "" {
		return model.LogEntry{}, false
	}

	if strings.HasPrefix(line, "{") {
		if entry, ok := a.classifyJSON(line); ok {
			return entry, true
		}
	}
	if m := bracketLine.FindStringSubmatch(line); m != nil {
		return a.classifyBracket(m), true
	}
	return a.classifyKeywords(line), true
}

// classifyJSON extracts level, message and component from a structured line,
// keeping the whole object as context.
func (a *Aggregator) classifyJSON(line string) (model.LogEntry, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return model.LogEntry{}, false
	}

	entry := model.LogEntry{
		Component: a.defaultComponent,
		Level:     model.LevelInfo,
		Context:   obj,
		Timestamp: time.Now().UTC(),
	}
	if v, ok := firstString(obj, "level", "severity"); ok {
		entry.Level = normalizeLevel(v)
	}
	if v, ok := firstString(obj, "message", "msg", "text"); ok {
		entry.Message = v
	} else {
		entry.Message = line
	}
	if v, ok := firstString(obj, "component", "service", "module"); ok {
		entry.Component = v
	}
	if v, ok := firstString(obj, "timestamp", "time"); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			entry.Timestamp = ts
		}
	}
	return entry, true
}

// classifyBracket builds an entry from the bracketed-timestamp match groups.
func (a *Aggregator) classifyBracket(m []string) model.LogEntry {
	entry := model.LogEntry{
		Component: a.defaultComponent,
		Level:     normalizeLevel(m[2]),
		Message:   strings.TrimSpace(m[3]),
		Context:   map[string]any{"raw": m[0]},
		Timestamp: time.Now().UTC(),
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999"} {
		if ts, err := time.Parse(layout, m[1]); err == nil {
			entry.Timestamp = ts
			break
		}
	}
	return entry
}

// classifyKeywords is the last stage: scan the line for level keywords and
// default to info.
func (a *Aggregator) classifyKeywords(line string) model.LogEntry {
	lower := strings.ToLower(line)
	level := model.LevelInfo
	switch {
	case containsAny(lower, "error", "exception", "failure", "critical"):
		level = model.LevelError
	case containsAny(lower, "warning", "deprecated"):
		level = model.LevelWarning
	}
	return model.LogEntry{
		Component: a.defaultComponent,
		Level:     level,
		Message:   line,
		Context:   map[string]any{"raw": line},
		Timestamp: time.Now().UTC(),
	}
}

// normalizeLevel maps common level spellings onto the model levels. Unknown
// levels become info.
func normalizeLevel(s string) model.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return model.LevelDebug
	case "info", "notice":
		return model.LevelInfo
	case "warn", "warning":
		return model.LevelWarning
	case "err", "error":
		return model.LevelError
	case "crit", "critical", "fatal", "panic":
		return model.LevelCritical
	default:
		return model.LevelInfo
	}
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
