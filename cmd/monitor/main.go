// Package main provides the CLI entry point for the monitor.
// It handles command-line flag parsing, component wiring, and HTTP server setup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/alert"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/api"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/broadcast"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/config"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/coordinator"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/health"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/logs"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/metrics"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/perf"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/retry"
	"github.com/energyforreal/kubera-pokisham-sub002/internal/store"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", "", "Path to the configuration file (optional)")
		listenAddr = flag.String("listen", "", "Listen address, overrides the configuration")
		dataDir    = flag.String("data-dir", "", "Data directory, overrides the configuration")
	)
	flag.Parse()

	// Set up structured logging
	// Allow DEBUG level via environment variable for troubleshooting
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "DEBUG" || os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Load configuration. The monitor must outlive a broken configuration
	// file, so a load failure falls back to defaults instead of exiting.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration, continuing with defaults", "error", err)
		cfg = config.Fallback()
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	slog.Info("Starting monitor",
		"listen_addr", cfg.ListenAddr,
		"data_dir", cfg.DataDir,
		"components", len(cfg.Components),
		"rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Open the event store
	st := store.Open(cfg.DataDir, store.Caps{
		Health:  cfg.Retention.HealthCap,
		Metrics: cfg.Retention.MetricsCap,
		Alerts:  cfg.Retention.AlertsCap,
		Logs:    cfg.Retention.LogsCap,
	})

	// Connect Redis for self-metrics reporting. The collector works without
	// it; only the periodic report is lost.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		err := retry.WithRetry(ctx, retry.DefaultConfig(), "redis connect", func() error {
			client, err := metrics.ConnectRedis(ctx, cfg.Redis.Addr)
			if err != nil {
				return err
			}
			redisClient = client
			return nil
		})
		if err != nil {
			slog.Warn("Redis unavailable, self-metrics reporting disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer redisClient.Close()
			slog.Info("Successfully connected to Redis", "addr", cfg.Redis.Addr)
		}
	}
	collector := metrics.NewCollector("monitor", redisClient)
	collector.SetReportInterval(cfg.Redis.ReportInterval)
	collector.Start(ctx)
	defer collector.Stop()

	// Initialize the health and performance monitors
	healthMon := health.New(st, collector, buildCheckers(cfg.Components)...)
	perfMon := perf.New(st, collector,
		perf.NewHostSampler(cfg.ProcPath),
		backendProbe(cfg.Components),
		livenessCounters(cfg.Components),
	)

	// Initialize the log aggregator and its line sources
	agg := logs.New(st, collector, cfg.Logs.DefaultComponent)
	go agg.Run(ctx)
	for _, file := range cfg.Logs.Files {
		slog.Info("Tailing log file", "path", file)
		go logs.NewTailer(file, agg.Lines()).Run(ctx)
	}
	if cfg.Logs.Kafka.Topic != "" {
		slog.Info("Connecting to Kafka log source", "topic", cfg.Logs.Kafka.Topic)
		source, err := logs.NewKafkaSource(
			strings.Split(cfg.Logs.Kafka.Brokers, ","),
			cfg.Logs.Kafka.Topic,
			cfg.Logs.Kafka.GroupID,
			agg.Lines(),
		)
		if err != nil {
			slog.Error("Failed to create Kafka log source", "error", err)
			os.Exit(1)
		}
		defer source.Close()
		go source.Run(ctx)
	}

	// Initialize alerting
	registry := buildChannels(cfg.Channels)
	slog.Info("Notification channels configured", "channels", registry.Names())
	manager := alert.New(st, collector, alert.Policy{
		RateLimitEnabled: cfg.Alerts.RateLimit.Enabled,
		RateLimitWindow:  cfg.Alerts.RateLimit.Window,
		MaxPerWindow:     cfg.Alerts.RateLimit.MaxPerWindow,
		DedupEnabled:     cfg.Alerts.Dedup.Enabled,
		DedupWindow:      cfg.Alerts.Dedup.Window,
	}, cfg.Alerts.Rules, registry)

	// Initialize the websocket hub and the periodic loops
	hub := broadcast.NewHub(collector)
	coord := coordinator.New(coordinator.Deps{
		Health: healthMon,
		Perf:   perfMon,
		Logs:   agg,
		Alerts: manager,
		Hub:    hub,
		Store:  st,
	}, coordinator.Intervals{
		Health:      cfg.Intervals.Health,
		Performance: cfg.Intervals.Performance,
		Evaluate:    cfg.Intervals.Coordinator,
		Purge:       cfg.Intervals.Purge,
	}, cfg.Retention.MaxAge)

	coordDone := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(coordDone)
	}()

	// Initialize HTTP handlers
	h := api.NewHandlers(api.Deps{
		Health:   healthMon,
		Perf:     perfMon,
		Logs:     agg,
		Alerts:   manager,
		History:  st,
		Service:  collector,
		Hub:      hub,
		Reloader: &configReloader{path: *configPath, manager: manager},
	})

	// Create HTTP server with router
	server := api.NewServer(cfg.ListenAddr, h, collector)

	// Start HTTP server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
		hub.CloseAll()
		<-coordDone
		slog.Info("HTTP server stopped")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Monitor stopped")
}
