// generate-test-data simulates the trading application the monitor watches:
// it serves a backend /health endpoint, writes the agent liveness file and
// appends log lines in the formats the aggregator classifies. Run it next to
// the monitor to exercise every check locally.
//
//	go run generate-test-data.go -port 8000 -liveness ./liveness.json -log ./trading.log
//
// With -chaos > 0 it periodically injects latency spikes, 500s, an active
// circuit breaker, error bursts and stale heartbeats so alerts actually fire.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	port     = flag.Int("port", 8000, "Port for the fake backend /health endpoint")
	liveness = flag.String("liveness", "./liveness.json", "Path of the agent liveness file")
	logFile  = flag.String("log", "./trading.log", "Path of the application log file")
	chaos    = flag.Float64("chaos", 0.2, "Probability per cycle of injecting a failure (0 disables)")
)

type livenessDoc struct {
	IsAlive       bool      `json:"is_alive"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	SignalsCount  int64     `json:"signals_count"`
	TradesCount   int64     `json:"trades_count"`
	ErrorsCount   int64     `json:"errors_count"`
}

type simulator struct {
	signals atomic.Int64
	trades  atomic.Int64
	errors  atomic.Int64

	breaker   atomic.Bool
	slow      atomic.Bool
	failing   atomic.Bool
	heartbeat atomic.Bool
}

func main() {
	flag.Parse()
	rand.Seed(time.Now().UnixNano())

	sim := &simulator{}
	sim.heartbeat.Store(true)

	http.HandleFunc("/health", sim.handleHealth)
	go func() {
		addr := fmt.Sprintf(":%d", *port)
		log.Printf("Serving fake backend on http://localhost%s/health", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatalf("Backend server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Writing liveness file to %s", *liveness)
	log.Printf("Appending log lines to %s", *logFile)
	if *chaos > 0 {
		log.Printf("Chaos injection enabled with probability %.2f", *chaos)
	}

	heartbeatTicker := time.NewTicker(5 * time.Second)
	logTicker := time.NewTicker(2 * time.Second)
	chaosTicker := time.NewTicker(15 * time.Second)
	defer heartbeatTicker.Stop()
	defer logTicker.Stop()
	defer chaosTicker.Stop()

	sim.writeLiveness()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopping")
			return
		case <-heartbeatTicker.C:
			if sim.heartbeat.Load() {
				sim.writeLiveness()
			}
		case <-logTicker.C:
			sim.appendLogLines()
		case <-chaosTicker.C:
			sim.rollChaos()
		}
	}
}

func (s *simulator) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.slow.Load() {
		time.Sleep(2500 * time.Millisecond)
	}
	if s.failing.Load() {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":                 "ok",
		"open_positions":         float64(rand.Intn(12)),
		"active_orders":          float64(rand.Intn(30)),
		"queue_depth":            float64(rand.Intn(100)),
		"circuit_breaker_active": s.breaker.Load(),
	})
}

func (s *simulator) writeLiveness() {
	s.signals.Add(int64(rand.Intn(3)))
	if rand.Intn(4) == 0 {
		s.trades.Add(1)
	}

	doc := livenessDoc{
		IsAlive:       true,
		LastHeartbeat: time.Now().UTC(),
		SignalsCount:  s.signals.Load(),
		TradesCount:   s.trades.Load(),
		ErrorsCount:   s.errors.Load(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to marshal liveness: %v", err)
		return
	}
	if err := os.WriteFile(*liveness, data, 0o644); err != nil {
		log.Printf("Warning: failed to write liveness file: %v", err)
	}
}

var infoLines = []string{
	`{"level":"info","message":"signal evaluated","component":"agent","strategy":"momentum"}`,
	`{"level":"info","message":"order placed","component":"backend","symbol":"BTCUSDT"}`,
	`[%s] [INFO] position sync completed`,
	"heartbeat ok, all feeds connected",
	`{"level":"debug","message":"orderbook refreshed","component":"backend"}`,
}

var errorLines = []string{
	`{"level":"error","message":"order rejected by exchange","component":"backend","code":-2010}`,
	`[%s] [ERROR] fill confirmation timed out`,
	"CRITICAL: exchange connection lost, reconnecting",
}

func (s *simulator) appendLogLines() {
	f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Warning: failed to open log file: %v", err)
		return
	}
	defer f.Close()

	lines := 1 + rand.Intn(3)
	for i := 0; i < lines; i++ {
		line := infoLines[rand.Intn(len(infoLines))]
		if rand.Float64() < *chaos {
			line = errorLines[rand.Intn(len(errorLines))]
			s.errors.Add(1)
		}
		if containsTimestamp(line) {
			line = fmt.Sprintf(line, time.Now().UTC().Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(f, line)
	}
}

func containsTimestamp(line string) bool {
	return len(line) > 2 && line[0] == '[' && line[1] == '%'
}

// rollChaos flips one failure mode on or off per roll so the monitor sees
// conditions develop and recover.
func (s *simulator) rollChaos() {
	if *chaos <= 0 || rand.Float64() >= *chaos {
		s.slow.Store(false)
		s.failing.Store(false)
		s.breaker.Store(false)
		s.heartbeat.Store(true)
		return
	}

	switch rand.Intn(4) {
	case 0:
		log.Printf("Chaos: backend latency spike")
		s.slow.Store(true)
	case 1:
		log.Printf("Chaos: backend returning 500")
		s.failing.Store(true)
	case 2:
		log.Printf("Chaos: circuit breaker active")
		s.breaker.Store(true)
	case 3:
		log.Printf("Chaos: heartbeat stalled")
		s.heartbeat.Store(false)
	}
}
