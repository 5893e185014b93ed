package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Stream.URL == "" {
		return errors.New("stream.url is required")
	}
	if c.Stream.MaxReconnectAttempts < 1 {
		return errors.New("stream.max_reconnect_attempts must be >= 1")
	}
	if c.Stream.InitialReconnectDelay <= 0 {
		return errors.New("stream.initial_reconnect_delay must be > 0")
	}
	if c.Stream.MaxReconnectDelay < c.Stream.InitialReconnectDelay {
		return errors.New("stream.max_reconnect_delay must be >= stream.initial_reconnect_delay")
	}
	if c.Stream.ReconnectDelayMultiplier < 1 {
		return errors.New("stream.reconnect_delay_multiplier must be >= 1")
	}
	if c.Stream.PingInterval <= 0 || c.Stream.PingTimeout <= 0 {
		return errors.New("stream.ping_interval and stream.ping_timeout must be > 0")
	}
	if c.Stream.MessageTimeout <= 0 {
		return errors.New("stream.message_timeout must be > 0")
	}

	if c.Recorder.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
	}

	if c.Relay.Enabled && c.Relay.Addr == "" {
		return errors.New("relay.addr is required when relay is enabled")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return errors.New("metrics.port must be between 1 and 65535")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	return nil
}
