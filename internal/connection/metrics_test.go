package connection

import (
	"testing"
	"time"
)

func TestMetrics_UptimeZeroBeforeConnect(t *testing.T) {
	m := &Metrics{}
	if got := m.Uptime(); got != 0 {
		t.Errorf("Uptime before any connect = %v, want 0", got)
	}
}

func TestMetrics_TimeSinceLastMessageNeverSeen(t *testing.T) {
	m := &Metrics{}
	if got := m.TimeSinceLastMessage(); got != neverSeen {
		t.Errorf("TimeSinceLastMessage before any frame = %v, want neverSeen", got)
	}

	m.markMessage(time.Now())
	if got := m.TimeSinceLastMessage(); got > time.Second {
		t.Errorf("TimeSinceLastMessage right after a frame = %v, want ~0", got)
	}
}

func TestMetrics_ConnectResetsFailureStreak(t *testing.T) {
	m := &Metrics{}
	m.consecutiveFailures.Store(7)
	m.markConnect(time.Now())

	if got := m.consecutiveFailures.Load(); got != 0 {
		t.Errorf("consecutiveFailures after connect = %d, want 0", got)
	}
	if m.Uptime() <= 0 {
		t.Error("Uptime should be positive after connect")
	}
}

func TestMetrics_DisconnectAccumulates(t *testing.T) {
	m := &Metrics{}
	m.markDisconnect(time.Now())
	m.markDisconnect(time.Now())

	snap := m.Snapshot()
	if snap.TotalDisconnects != 2 {
		t.Errorf("TotalDisconnects = %d, want 2", snap.TotalDisconnects)
	}
	if snap.DisconnectTime.IsZero() {
		t.Error("DisconnectTime should be set")
	}
}

func TestMetrics_SnapshotZeroTimes(t *testing.T) {
	m := &Metrics{}
	snap := m.Snapshot()

	if !snap.ConnectTime.IsZero() || !snap.LastPongTime.IsZero() || !snap.LastPingTime.IsZero() {
		t.Error("never-recorded timestamps should be zero in snapshot")
	}
	if snap.TimeSinceLastMessage != neverSeen {
		t.Errorf("TimeSinceLastMessage = %v, want neverSeen", snap.TimeSinceLastMessage)
	}
}
