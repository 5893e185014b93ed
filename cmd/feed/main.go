package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/hyperfeed/internal/api"
	"github.com/rickgao/hyperfeed/internal/config"
	"github.com/rickgao/hyperfeed/internal/connection"
	"github.com/rickgao/hyperfeed/internal/database"
	"github.com/rickgao/hyperfeed/internal/metrics"
	"github.com/rickgao/hyperfeed/internal/recorder"
	"github.com/rickgao/hyperfeed/internal/relay"
	"github.com/rickgao/hyperfeed/internal/version"
)

// envSettings are process-level knobs read from the environment before the
// YAML config is loaded.
type envSettings struct {
	ConfigPath string `env:"FEED_CONFIG" envDefault:"configs/feed.local.yaml"`
	LogLevel   string `env:"FEED_LOG_LEVEL" envDefault:"debug"`
}

func main() {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	var settings envSettings
	if err := env.Parse(&settings); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse environment: %v\n", err)
		os.Exit(1)
	}

	configPath := flag.String("config", settings.ConfigPath, "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(settings.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting feed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"stream_url", cfg.Stream.URL,
		"subscriptions", len(cfg.Stream.Subscriptions),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Probe the snapshot API before opening the stream so a bad endpoint
	// fails fast.
	apiClient := api.NewClient(
		cfg.API.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	mids, err := apiClient.AllMids(ctx)
	if err != nil {
		logger.Error("failed to fetch mid prices", "error", err)
		os.Exit(1)
	}
	logger.Info("snapshot api reachable", "coins", len(mids))

	// Frame recorder (optional).
	var (
		pool *pgxpool.Pool
		rec  *recorder.Recorder
	)
	if cfg.Recorder.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Timescale)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(recorder.Config{
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, pool, logger)

		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
	}

	// Redis fan-out (optional).
	var rel *relay.Relay
	if cfg.Relay.Enabled {
		relayCfg := relay.DefaultConfig()
		relayCfg.Addr = cfg.Relay.Addr
		relayCfg.Password = cfg.Relay.Password
		relayCfg.DB = cfg.Relay.DB
		if cfg.Relay.ChannelPrefix != "" {
			relayCfg.ChannelPrefix = cfg.Relay.ChannelPrefix
		}

		rel, err = relay.New(ctx, relayCfg, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rel.Close()
	}

	mgr := connection.NewManager(streamConfig(cfg.Stream),
		connection.WithLogger(logger),
		connection.OnMessage(func(msg connection.Message) {
			if rec != nil {
				rec.Record(msg)
			}
			if rel != nil {
				rel.Publish(ctx, msg)
			}
		}),
		connection.OnStateChange(func(old, new connection.State) {
			logger.Info("connection state changed", "from", old, "to", new)
		}),
	)

	for _, sub := range cfg.Stream.Subscriptions {
		mgr.AddSubscription(connection.Subscription(sub))
	}

	// Metrics and health server.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(mgr),
	)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: newRouter(cfg, mgr, pool, rec, rel, reg, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	logger.Info("feed running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := mgr.Stop(shutdownCtx); err != nil {
		logger.Warn("connection manager stop", "error", err)
	}
	if rec != nil {
		if err := rec.Stop(shutdownCtx); err != nil {
			logger.Warn("recorder stop", "error", err)
		}
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("feed stopped")
}

// streamConfig maps the YAML stream section onto the connection manager
// config, falling back to manager defaults for unset fields.
func streamConfig(sc config.StreamConfig) connection.Config {
	cc := connection.DefaultConfig()
	cc.URL = sc.URL

	if sc.MaxReconnectAttempts > 0 {
		cc.MaxReconnectAttempts = sc.MaxReconnectAttempts
	}
	if sc.InitialReconnectDelay > 0 {
		cc.InitialReconnectDelay = sc.InitialReconnectDelay
	}
	if sc.MaxReconnectDelay > 0 {
		cc.MaxReconnectDelay = sc.MaxReconnectDelay
	}
	if sc.ReconnectDelayMultiplier > 0 {
		cc.ReconnectDelayMultiplier = sc.ReconnectDelayMultiplier
	}
	if sc.PingInterval > 0 {
		cc.PingInterval = sc.PingInterval
	}
	if sc.PingTimeout > 0 {
		cc.PingTimeout = sc.PingTimeout
	}
	if sc.MessageTimeout > 0 {
		cc.MessageTimeout = sc.MessageTimeout
	}
	if sc.ConnectTimeout > 0 {
		cc.ConnectTimeout = sc.ConnectTimeout
	}
	if sc.CloseTimeout > 0 {
		cc.CloseTimeout = sc.CloseTimeout
	}
	if sc.WriteTimeout > 0 {
		cc.WriteTimeout = sc.WriteTimeout
	}

	return cc
}

// newRouter builds the health/status/metrics HTTP surface.
func newRouter(cfg *config.FeedConfig, mgr *connection.Manager, pool *pgxpool.Pool, rec *recorder.Recorder, rel *relay.Relay, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		health.Components["connection"] = mgr.State().String()
		if !mgr.IsConnected() {
			health.Status = "degraded"
		}
		if mgr.State() == connection.StateFatalError {
			health.Status = "unhealthy"
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["timescaledb"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["timescaledb"] = "connected"
			}
		}
		if rec != nil {
			health.Components["recorder"] = rec.Stats()
		}
		if rel != nil {
			health.Components["relay"] = rel.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		snap := mgr.MetricsSnapshot()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"summary":              mgr.Status(),
			"state":                mgr.State().String(),
			"messages_received":    snap.MessagesReceived,
			"reconnect_count":      snap.ReconnectCount,
			"total_disconnects":    snap.TotalDisconnects,
			"consecutive_failures": snap.ConsecutiveFailures,
			"uptime":               snap.Uptime.String(),
		})
	})

	return r
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
