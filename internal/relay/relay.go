package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/hyperfeed/internal/connection"
)

// publisher is the slice of the redis client the relay uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Config holds relay settings.
type Config struct {
	Addr           string
	Password       string
	DB             int
	ChannelPrefix  string
	PublishTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChannelPrefix:  "hyperfeed",
		PublishTimeout: 2 * time.Second,
	}
}

// Metrics contains relay counters.
type Metrics struct {
	Published int64
	Errors    int64
}

// Relay publishes frames to Redis pub/sub channels.
type Relay struct {
	cfg    Config
	client publisher
	closer func() error
	logger *slog.Logger

	published atomic.Int64
	errors    atomic.Int64
}

// New connects to Redis and returns a Relay.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("relay connected", "addr", cfg.Addr, "prefix", cfg.ChannelPrefix)

	return &Relay{
		cfg:    cfg,
		client: client,
		closer: client.Close,
		logger: logger,
	}, nil
}

// newWithPublisher is for tests.
func newWithPublisher(cfg Config, client publisher, logger *slog.Logger) *Relay {
	return &Relay{cfg: cfg, client: client, logger: logger}
}

// Publish sends one frame to <prefix>.<channel>. Best-effort; failures are
// counted and logged.
func (r *Relay) Publish(ctx context.Context, msg connection.Message) {
	channel := r.cfg.ChannelPrefix + "." + msg.Channel

	pubCtx := ctx
	if r.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, r.cfg.PublishTimeout)
		defer cancel()
	}

	if err := r.client.Publish(pubCtx, channel, msg.Raw).Err(); err != nil {
		r.errors.Add(1)
		r.logger.Warn("publish failed", "channel", channel, "error", err)
		return
	}

	r.published.Add(1)
}

// Stats returns current metrics.
func (r *Relay) Stats() Metrics {
	return Metrics{
		Published: r.published.Load(),
		Errors:    r.errors.Load(),
	}
}

// Close releases the underlying Redis connection.
func (r *Relay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
