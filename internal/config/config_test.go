package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
instance:
  id: feed-1
stream:
  url: wss://api.hyperliquid.xyz/ws
  subscriptions:
    - type: trades
      coin: BTC
    - type: l2Book
      coin: ETH
`

func TestLoadAndValidate_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Instance.ID != "feed-1" {
		t.Errorf("Instance.ID = %q, want feed-1", cfg.Instance.ID)
	}
	if cfg.Stream.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want default %d",
			cfg.Stream.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Stream.InitialReconnectDelay != DefaultInitialDelay {
		t.Errorf("InitialReconnectDelay = %v, want %v", cfg.Stream.InitialReconnectDelay, DefaultInitialDelay)
	}
	if cfg.Stream.MessageTimeout != DefaultMessageTimeout {
		t.Errorf("MessageTimeout = %v, want %v", cfg.Stream.MessageTimeout, DefaultMessageTimeout)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if len(cfg.Stream.Subscriptions) != 2 {
		t.Fatalf("Subscriptions = %d entries, want 2", len(cfg.Stream.Subscriptions))
	}
	if cfg.Stream.Subscriptions[0]["coin"] != "BTC" {
		t.Errorf("first subscription coin = %v, want BTC", cfg.Stream.Subscriptions[0]["coin"])
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("FEED_WS_URL", "wss://testnet.example.com/ws")
	path := writeConfig(t, `
instance:
  id: feed-1
stream:
  url: ${FEED_WS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.URL != "wss://testnet.example.com/ws" {
		t.Errorf("Stream.URL = %q, want expanded env value", cfg.Stream.URL)
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	path := writeConfig(t, `
instance:
  id: feed-1
stream:
  url: wss://x/ws
  initial_reconnect_delay: 500ms
  max_reconnect_delay: 30s
  message_timeout: 2m
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Stream.InitialReconnectDelay != 500*time.Millisecond {
		t.Errorf("InitialReconnectDelay = %v, want 500ms", cfg.Stream.InitialReconnectDelay)
	}
	if cfg.Stream.MaxReconnectDelay != 30*time.Second {
		t.Errorf("MaxReconnectDelay = %v, want 30s", cfg.Stream.MaxReconnectDelay)
	}
	if cfg.Stream.MessageTimeout != 2*time.Minute {
		t.Errorf("MessageTimeout = %v, want 2m", cfg.Stream.MessageTimeout)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FeedConfig)
	}{
		{"missing instance id", func(c *FeedConfig) { c.Instance.ID = "" }},
		{"missing stream url", func(c *FeedConfig) { c.Stream.URL = "" }},
		{"zero attempts", func(c *FeedConfig) { c.Stream.MaxReconnectAttempts = -1 }},
		{"multiplier below one", func(c *FeedConfig) { c.Stream.ReconnectDelayMultiplier = 0.5 }},
		{"max delay below initial", func(c *FeedConfig) {
			c.Stream.InitialReconnectDelay = 10 * time.Second
			c.Stream.MaxReconnectDelay = 1 * time.Second
		}},
		{"recorder without database", func(c *FeedConfig) { c.Recorder.Enabled = true }},
		{"relay without addr", func(c *FeedConfig) { c.Relay.Enabled = true }},
		{"bad metrics port", func(c *FeedConfig) { c.Metrics.Port = 700000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &FeedConfig{}
			cfg.Instance.ID = "feed-1"
			cfg.Stream.URL = "wss://x/ws"
			cfg.applyDefaults()
			tt.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidate_MinimalOK(t *testing.T) {
	cfg := &FeedConfig{}
	cfg.Instance.ID = "feed-1"
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}
