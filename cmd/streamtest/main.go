// streamtest connects to the venue WebSocket and streams frames to console.
// Usage: go run ./cmd/streamtest --config configs/feed.local.yaml --coins BTC,ETH
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/hyperfeed/internal/config"
	"github.com/rickgao/hyperfeed/internal/connection"
)

func main() {
	configPath := flag.String("config", "configs/feed.example.yaml", "path to config file")
	coins := flag.String("coins", "", "comma-separated coins to subscribe l2Book for (overrides config subscriptions)")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	connCfg := connection.DefaultConfig()
	connCfg.URL = cfg.Stream.URL

	mgr := connection.NewManager(connCfg,
		connection.WithLogger(logger),
		connection.OnMessage(func(msg connection.Message) {
			printFrame(msg, *verbose)
		}),
		connection.OnStateChange(func(old, new connection.State) {
			logger.Info("state changed", "from", old, "to", new)
		}),
		connection.OnDisconnect(func(reason error) {
			logger.Warn("disconnected", "reason", reason)
		}),
	)

	if *coins != "" {
		for _, coin := range strings.Split(*coins, ",") {
			mgr.AddSubscription(connection.Subscription{
				"type": "l2Book",
				"coin": strings.TrimSpace(coin),
			})
		}
	} else {
		for _, sub := range cfg.Stream.Subscriptions {
			mgr.AddSubscription(connection.Subscription(sub))
		}
	}

	logger.Info("starting connection manager", "url", connCfg.URL)
	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := mgr.MetricsSnapshot()
				logger.Info("stats",
					"state", mgr.State(),
					"messages", snap.MessagesReceived,
					"reconnects", snap.ReconnectCount,
					"disconnects", snap.TotalDisconnects,
					"uptime", snap.Uptime.Round(time.Second),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	mgr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printFrame(msg connection.Message, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(msg.Payload, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(msg.Channel), data)
		return
	}

	coin := ""
	if data, ok := msg.Payload["data"].(map[string]any); ok {
		coin, _ = data["coin"].(string)
	}
	fmt.Printf("[%s] coin=%s bytes=%d at=%s\n",
		strings.ToUpper(msg.Channel), coin, len(msg.Raw), msg.ReceivedAt.Format(time.RFC3339Nano))
}
