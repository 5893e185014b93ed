package config

import "time"

// FeedConfig is the root configuration for a feed instance.
type FeedConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Recorder RecorderConfig `yaml:"recorder"`
	Relay    RelayConfig    `yaml:"relay"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this feed process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds the request/reply snapshot API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds the WebSocket connection tunables.
type StreamConfig struct {
	URL string `yaml:"url"`

	MaxReconnectAttempts     int           `yaml:"max_reconnect_attempts"`
	InitialReconnectDelay    time.Duration `yaml:"initial_reconnect_delay"`
	MaxReconnectDelay        time.Duration `yaml:"max_reconnect_delay"`
	ReconnectDelayMultiplier float64       `yaml:"reconnect_delay_multiplier"`

	PingInterval   time.Duration `yaml:"ping_interval"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	MessageTimeout time.Duration `yaml:"message_timeout"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CloseTimeout   time.Duration `yaml:"close_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`

	// Subscriptions are registered before the manager starts; each entry is
	// sent verbatim inside a subscribe envelope.
	Subscriptions []map[string]any `yaml:"subscriptions"`
}

// DatabaseConfig holds the TimescaleDB connection for recorded frames.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecorderConfig holds frame recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// RelayConfig holds Redis fan-out settings.
type RelayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
