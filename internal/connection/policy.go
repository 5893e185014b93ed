package connection

import (
	"math"
	"time"
)

// Policy decides retry-vs-fatal and the backoff delay after a connection
// failure. It is a pure function of the failure streak and the config;
// it carries no penalty across successful sessions.
type Policy struct {
	initial     time.Duration
	max         time.Duration
	multiplier  float64
	maxAttempts int
}

// NewPolicy builds a Policy from the connection config.
func NewPolicy(cfg Config) Policy {
	return Policy{
		initial:     cfg.InitialReconnectDelay,
		max:         cfg.MaxReconnectDelay,
		multiplier:  cfg.ReconnectDelayMultiplier,
		maxAttempts: cfg.MaxReconnectAttempts,
	}
}

// Decide returns the backoff delay for the given consecutive-failure count
// (n >= 1), and whether the failure streak has exhausted the retry budget.
//
//	delay(n) = min(initial * multiplier^(n-1), max)
func (p Policy) Decide(failures int64) (delay time.Duration, fatal bool) {
	if failures > int64(p.maxAttempts) {
		return 0, true
	}

	d := float64(p.initial) * math.Pow(p.multiplier, float64(failures-1))
	if d > float64(p.max) || math.IsInf(d, 1) {
		return p.max, false
	}
	return time.Duration(d), false
}
