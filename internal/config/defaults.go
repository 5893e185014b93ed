package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "https://api.hyperliquid.xyz/info"
	DefaultStreamURL            = "wss://api.hyperliquid.xyz/ws"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultMaxReconnectAttempts = 10
	DefaultInitialDelay         = 1 * time.Second
	DefaultMaxDelay             = 60 * time.Second
	DefaultDelayMultiplier      = 2.0
	DefaultPingInterval         = 15 * time.Second
	DefaultPingTimeout          = 10 * time.Second
	DefaultMessageTimeout       = 60 * time.Second
	DefaultConnectTimeout       = 10 * time.Second
	DefaultCloseTimeout         = 5 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 10000
	DefaultRelayPrefix          = "hyperfeed"
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *FeedConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.MaxReconnectAttempts == 0 {
		c.Stream.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Stream.InitialReconnectDelay == 0 {
		c.Stream.InitialReconnectDelay = DefaultInitialDelay
	}
	if c.Stream.MaxReconnectDelay == 0 {
		c.Stream.MaxReconnectDelay = DefaultMaxDelay
	}
	if c.Stream.ReconnectDelayMultiplier == 0 {
		c.Stream.ReconnectDelayMultiplier = DefaultDelayMultiplier
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.MessageTimeout == 0 {
		c.Stream.MessageTimeout = DefaultMessageTimeout
	}
	if c.Stream.ConnectTimeout == 0 {
		c.Stream.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Stream.CloseTimeout == 0 {
		c.Stream.CloseTimeout = DefaultCloseTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	// Relay defaults
	if c.Relay.ChannelPrefix == "" {
		c.Relay.ChannelPrefix = DefaultRelayPrefix
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
