package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// LivenessDoc is the heartbeat document the trading process rewrites on disk.
// The agent writes last_heartbeat either as an RFC 3339 string or as unix
// seconds; UnmarshalJSON accepts both.
type LivenessDoc struct {
	IsAlive              bool
	LastHeartbeat        time.Time
	SignalsCount         *float64
	TradesCount          *float64
	ErrorsCount          *float64
	CircuitBreakerActive bool
}

type livenessDocJSON struct {
	IsAlive              bool            `json:"is_alive"`
	LastHeartbeat        json.RawMessage `json:"last_heartbeat"`
	SignalsCount         *float64        `json:"signals_count"`
	TradesCount          *float64        `json:"trades_count"`
	ErrorsCount          *float64        `json:"errors_count"`
	CircuitBreakerActive bool            `json:"circuit_breaker_active"`
}

// UnmarshalJSON decodes the on-disk heartbeat document.
func (d *LivenessDoc) UnmarshalJSON(data []byte) error {
	var raw livenessDocJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.IsAlive = raw.IsAlive
	d.SignalsCount = raw.SignalsCount
	d.TradesCount = raw.TradesCount
	d.ErrorsCount = raw.ErrorsCount
	d.CircuitBreakerActive = raw.CircuitBreakerActive
	if len(raw.LastHeartbeat) > 0 && string(raw.LastHeartbeat) != "null" {
		ts, err := parseHeartbeat(raw.LastHeartbeat)
		if err != nil {
			return fmt.Errorf("parsing last_heartbeat: %w", err)
		}
		d.LastHeartbeat = ts
	}
	return nil
}

// parseHeartbeat accepts an RFC 3339 timestamp, a naive ISO 8601 timestamp
// (treated as UTC), or unix seconds.
func parseHeartbeat(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	var sec float64
	if err := json.Unmarshal(raw, &sec); err == nil {
		whole := int64(sec)
		frac := int64((sec - float64(whole)) * 1e9)
		return time.Unix(whole, frac).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported value %s", string(raw))
}
