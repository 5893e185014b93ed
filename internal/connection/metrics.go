package connection

import (
	"math"
	"sync/atomic"
	"time"
)

// neverSeen is the time-since value reported before any message has arrived.
const neverSeen = time.Duration(math.MaxInt64)

// Metrics tracks connection health. Timestamps are unix nanos, zero meaning
// "never". Each field has a single writer (the run loop writes connect and
// disconnect times and failure counters, the dispatcher writes message and
// pong timestamps, the heartbeat writes ping timestamps); atomics make the
// cross-goroutine reads safe without a lock on the hot path.
type Metrics struct {
	connectTime     atomic.Int64
	disconnectTime  atomic.Int64
	lastMessageTime atomic.Int64
	lastPingTime    atomic.Int64
	lastPongTime    atomic.Int64

	messagesReceived    atomic.Int64
	reconnectCount      atomic.Int64
	totalDisconnects    atomic.Int64
	consecutiveFailures atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the metrics. Zero timestamps
// mean the event never happened.
type MetricsSnapshot struct {
	ConnectTime     time.Time
	DisconnectTime  time.Time
	LastMessageTime time.Time
	LastPingTime    time.Time
	LastPongTime    time.Time

	MessagesReceived    int64
	ReconnectCount      int64
	TotalDisconnects    int64
	ConsecutiveFailures int64

	Uptime               time.Duration
	TimeSinceLastMessage time.Duration
}

// markConnect records a successful connect and resets the failure streak.
func (m *Metrics) markConnect(now time.Time) {
	m.connectTime.Store(now.UnixNano())
	m.consecutiveFailures.Store(0)
}

// markDisconnect records the end of a connected session.
func (m *Metrics) markDisconnect(now time.Time) {
	m.disconnectTime.Store(now.UnixNano())
	m.totalDisconnects.Add(1)
}

func (m *Metrics) markMessage(now time.Time) {
	m.lastMessageTime.Store(now.UnixNano())
}

func (m *Metrics) markPing(now time.Time) {
	m.lastPingTime.Store(now.UnixNano())
}

func (m *Metrics) markPong(now time.Time) {
	m.lastPongTime.Store(now.UnixNano())
}

// Uptime returns time since the last successful connect, 0 if never connected.
func (m *Metrics) Uptime() time.Duration {
	ct := m.connectTime.Load()
	if ct == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ct))
}

// TimeSinceLastMessage returns time since the last inbound frame of any kind,
// or neverSeen if no frame has ever arrived.
func (m *Metrics) TimeSinceLastMessage() time.Duration {
	lm := m.lastMessageTime.Load()
	if lm == 0 {
		return neverSeen
	}
	return time.Since(time.Unix(0, lm))
}

// timeSincePong returns time since the last liveness ack, or neverSeen.
func (m *Metrics) timeSincePong() time.Duration {
	lp := m.lastPongTime.Load()
	if lp == 0 {
		return neverSeen
	}
	return time.Since(time.Unix(0, lp))
}

// Snapshot returns a consistent-enough copy for status reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ConnectTime:     nanosToTime(m.connectTime.Load()),
		DisconnectTime:  nanosToTime(m.disconnectTime.Load()),
		LastMessageTime: nanosToTime(m.lastMessageTime.Load()),
		LastPingTime:    nanosToTime(m.lastPingTime.Load()),
		LastPongTime:    nanosToTime(m.lastPongTime.Load()),

		MessagesReceived:    m.messagesReceived.Load(),
		ReconnectCount:      m.reconnectCount.Load(),
		TotalDisconnects:    m.totalDisconnects.Load(),
		ConsecutiveFailures: m.consecutiveFailures.Load(),

		Uptime:               m.Uptime(),
		TimeSinceLastMessage: m.TimeSinceLastMessage(),
	}
}

func nanosToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
