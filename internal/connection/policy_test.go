package connection

import (
	"testing"
	"time"
)

func TestPolicy_DelayCurve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialReconnectDelay = 1 * time.Second
	cfg.ReconnectDelayMultiplier = 1.5
	cfg.MaxReconnectDelay = 30 * time.Second
	cfg.MaxReconnectAttempts = 100
	p := NewPolicy(cfg)

	want := []time.Duration{
		1 * time.Second,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3375 * time.Millisecond,
		5062500 * time.Microsecond,
		7593750 * time.Microsecond,
	}

	for i, wantDelay := range want {
		failures := int64(i + 1)
		delay, fatal := p.Decide(failures)
		if fatal {
			t.Fatalf("Decide(%d) returned fatal", failures)
		}
		if delay != wantDelay {
			t.Errorf("Decide(%d) delay = %v, want %v", failures, delay, wantDelay)
		}
	}
}

func TestPolicy_SaturatesAtMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialReconnectDelay = 1 * time.Second
	cfg.ReconnectDelayMultiplier = 2.0
	cfg.MaxReconnectDelay = 10 * time.Second
	cfg.MaxReconnectAttempts = 1000
	p := NewPolicy(cfg)

	for failures := int64(5); failures <= 500; failures += 50 {
		delay, fatal := p.Decide(failures)
		if fatal {
			t.Fatalf("Decide(%d) returned fatal", failures)
		}
		if delay != 10*time.Second {
			t.Errorf("Decide(%d) delay = %v, want saturation at 10s", failures, delay)
		}
	}
}

func TestPolicy_NonDecreasing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialReconnectDelay = 250 * time.Millisecond
	cfg.ReconnectDelayMultiplier = 1.7
	cfg.MaxReconnectDelay = 20 * time.Second
	cfg.MaxReconnectAttempts = 100
	p := NewPolicy(cfg)

	var prev time.Duration
	for failures := int64(1); failures <= 50; failures++ {
		delay, fatal := p.Decide(failures)
		if fatal {
			t.Fatalf("Decide(%d) returned fatal", failures)
		}
		if delay < prev {
			t.Errorf("Decide(%d) delay %v < previous %v", failures, delay, prev)
		}
		if delay > cfg.MaxReconnectDelay {
			t.Errorf("Decide(%d) delay %v exceeds max %v", failures, delay, cfg.MaxReconnectDelay)
		}
		prev = delay
	}
}

func TestPolicy_FatalAfterCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxReconnectAttempts = 2
	p := NewPolicy(cfg)

	for failures := int64(1); failures <= 2; failures++ {
		if _, fatal := p.Decide(failures); fatal {
			t.Errorf("Decide(%d) fatal = true, want retry", failures)
		}
	}
	if _, fatal := p.Decide(3); !fatal {
		t.Error("Decide(3) fatal = false, want fatal once failures exceed ceiling")
	}
}
