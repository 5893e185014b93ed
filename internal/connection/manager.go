package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Manager maintains one resilient WebSocket session to the market-data venue.
// It is the only public entry point to the package: callers register
// subscriptions and callbacks, then Start it.
//
// Disconnect safety: for every way a session can end (remote close, local
// error, staleness-forced close, cancellation), the disconnect callback is
// invoked and completes before any backoff sleep begins or any new connect
// attempt starts. Trading logic may therefore exit risk inside the callback
// while certain the feed is down.
type Manager struct {
	cfg      Config
	logger   *slog.Logger
	registry *Registry
	metrics  *Metrics
	policy   Policy
	sm       *stateMachine
	disp     *dispatcher

	onConnect     func()
	onDisconnect  func(reason error)
	onMessage     func(Message)
	onStateChange func(old, new State)

	// Lifecycle. running is the stop flag the retry loop observes; done is
	// closed when the run loop exits.
	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}

	// Socket ownership: exactly one handle per attempt, closed exactly once,
	// reference cleared after close.
	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	// Set by a self-inflicted close (staleness) so the session reports that
	// reason rather than the read error it provokes.
	reasonMu    sync.Mutex
	closeReason error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// OnMessage sets the handler for forwarded data frames.
func OnMessage(fn func(Message)) Option {
	return func(m *Manager) { m.onMessage = fn }
}

// OnConnect sets the handler invoked after subscriptions are replayed on a
// successful connect.
func OnConnect(fn func()) Option {
	return func(m *Manager) { m.onConnect = fn }
}

// OnDisconnect sets the handler invoked, synchronously, after every session
// ends and before any reconnect attempt.
func OnDisconnect(fn func(reason error)) Option {
	return func(m *Manager) { m.onDisconnect = fn }
}

// OnStateChange sets the observer for state transitions.
func OnStateChange(fn func(old, new State)) Option {
	return func(m *Manager) { m.onStateChange = fn }
}

// NewManager creates a Manager. It does not connect until Start is called.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: NewRegistry(),
		metrics:  &Metrics{},
		policy:   NewPolicy(cfg),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.sm = newStateMachine(func(old, new State) {
		m.logger.Debug("connection state changed", "from", old, "to", new)
		if m.onStateChange != nil {
			m.onStateChange(old, new)
		}
	})
	m.disp = newDispatcher(m.metrics, m.logger, m.onMessage)

	return m
}

// AddSubscription registers a descriptor for replay. When a session is live,
// the descriptor is queued for the next connect, not sent on the current one.
func (m *Manager) AddSubscription(sub Subscription) {
	m.registry.Add(sub)
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.sm.State()
}

// IsConnected reports whether a session is currently established.
func (m *Manager) IsConnected() bool {
	return m.sm.State() == StateConnected
}

// MetricsSnapshot returns a copy of the connection health metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Status returns a human-readable one-line summary.
func (m *Manager) Status() string {
	state := m.sm.State()
	snap := m.metrics.Snapshot()
	switch state {
	case StateConnected:
		return fmt.Sprintf("%s uptime=%s messages=%d",
			state, snap.Uptime.Truncate(time.Second), snap.MessagesReceived)
	case StateReconnecting:
		return fmt.Sprintf("%s attempt=%d", state, snap.ConsecutiveFailures)
	default:
		return state.String()
	}
}

// Start launches the connect/retry loop. It is idempotent: calling Start on a
// running manager is a no-op. After a stop or a fatal error, Start begins a
// fresh run from Disconnected.
func (m *Manager) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.running.Load() {
		return nil
	}

	// A restart after FatalError begins from Disconnected.
	if m.sm.State() == StateFatalError {
		m.sm.transition(StateDisconnected)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)

	go m.run(runCtx, m.done)
	return nil
}

// Stop requests shutdown and waits for the run loop to finish cleanup, bounded
// by ctx. The state ends at Disconnected.
func (m *Manager) Stop(ctx context.Context) error {
	m.lifecycleMu.Lock()
	m.running.Store(false)
	if m.cancel != nil {
		m.cancel()
	}
	done := m.done
	m.lifecycleMu.Unlock()

	// Unblock a receive loop stuck on a socket read.
	m.closeConn()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// An explicit stop always lands in Disconnected, even when the run loop
	// already exited through FatalError.
	m.sm.transition(StateDisconnected)
	return nil
}

// Send marshals v and writes it to the current socket. It fails with
// ErrNotConnected when no session is live; it never panics.
func (m *Manager) Send(v any) error {
	if m.sm.State() != StateConnected {
		return ErrNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return m.write(data)
}

// run is the connect/retry control loop. It is the single writer of the state
// machine and of the failure counters.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if m.stopped(ctx) {
			m.sm.transition(StateDisconnected)
			return
		}

		m.sm.transition(StateConnecting)
		reason := m.runSession(ctx)

		if m.stopped(ctx) {
			m.sm.transition(StateDisconnected)
			return
		}

		failures := m.metrics.consecutiveFailures.Add(1)
		delay, fatal := m.policy.Decide(failures)
		if fatal {
			m.logger.Error("reconnect attempts exhausted, giving up",
				"failures", failures,
				"max_attempts", m.cfg.MaxReconnectAttempts,
				"last_error", reason,
			)
			m.sm.transition(StateFatalError)
			m.running.Store(false)
			return
		}

		m.sm.transition(StateReconnecting)
		m.metrics.reconnectCount.Add(1)
		m.logger.Warn("reconnecting",
			"attempt", failures,
			"delay", delay,
			"error", reason,
		)

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
}

// runSession performs one connect attempt and, on success, runs the session
// until it ends. It returns the failure reason. The disconnect callback has
// completed by the time runSession returns.
func (m *Manager) runSession(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, m.cfg.URL, nil)
	cancel()
	if err != nil {
		m.logger.Warn("connect failed", "url", m.cfg.URL, "error", err)
		return err
	}

	m.setConn(conn)
	logger := m.logger.With("session", uuid.NewString())
	logger.Info("connected", "url", m.cfg.URL)

	m.metrics.markConnect(time.Now())
	m.sm.transition(StateConnected)

	m.replaySubscriptions(logger)
	m.fireConnect(logger)

	reason := m.runConnected(ctx, conn, logger)
	if forced := m.takeCloseReason(); forced != nil {
		reason = forced
	}

	m.closeConn()
	m.metrics.markDisconnect(time.Now())
	logger.Warn("disconnected", "reason", reason)

	// Completes before any backoff or new attempt.
	m.fireDisconnect(logger, reason)

	return reason
}

// runConnected runs the receive loop and the heartbeat monitor concurrently
// until either ends the session.
func (m *Manager) runConnected(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) error {
	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()

	hb := &heartbeatMonitor{
		cfg:     m.cfg,
		metrics: m.metrics,
		logger:  logger,
		ping: func() error {
			data, _ := json.Marshal(pingRequest{Method: "ping"})
			return m.write(data)
		},
		forceClose: func(reason error) {
			m.setCloseReason(reason)
			m.closeConn()
		},
	}

	g, gctx := errgroup.WithContext(sessionCtx)
	g.Go(func() error { return m.receiveLoop(gctx, conn) })
	g.Go(func() error { return hb.run(gctx) })
	g.Go(func() error {
		// Unblocks the socket read when the session is torn down from outside.
		<-gctx.Done()
		m.closeConn()
		return nil
	})

	err := g.Wait()
	if err == nil {
		err = context.Cause(ctx)
	}
	return err
}

// receiveLoop reads frames until the socket dies and hands each one to the
// dispatcher.
func (m *Manager) receiveLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			if ctx.Err() != nil || !m.running.Load() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		m.disp.dispatch(data, receivedAt)
	}
}

// replaySubscriptions sends one subscribe envelope per registered descriptor,
// in registration order. A failed send is logged and skipped; it does not
// abort the connection.
func (m *Manager) replaySubscriptions(logger *slog.Logger) {
	subs := m.registry.Snapshot()
	for i, sub := range subs {
		data, err := json.Marshal(subscribeRequest{Method: "subscribe", Subscription: sub})
		if err != nil {
			logger.Warn("skipping unmarshalable subscription", "index", i, "error", err)
			continue
		}
		if err := m.write(data); err != nil {
			logger.Warn("subscribe failed", "index", i, "subscription", sub, "error", err)
		}
	}
	if len(subs) > 0 {
		logger.Info("subscriptions replayed", "count", len(subs))
	}
}

func (m *Manager) fireConnect(logger *slog.Logger) {
	if m.onConnect == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("connect handler panicked", "panic", r)
		}
	}()
	m.onConnect()
}

// fireDisconnect invokes the disconnect callback synchronously. A panic is
// logged but must not block cleanup or the retry decision.
func (m *Manager) fireDisconnect(logger *slog.Logger, reason error) {
	if m.onDisconnect == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("disconnect handler panicked", "panic", r)
		}
	}()
	m.onDisconnect(reason)
}

// stopped reports whether the retry loop should exit instead of scheduling
// another attempt.
func (m *Manager) stopped(ctx context.Context) bool {
	return !m.running.Load() || ctx.Err() != nil
}

func (m *Manager) setCloseReason(reason error) {
	m.reasonMu.Lock()
	m.closeReason = reason
	m.reasonMu.Unlock()
}

func (m *Manager) takeCloseReason() error {
	m.reasonMu.Lock()
	defer m.reasonMu.Unlock()
	reason := m.closeReason
	m.closeReason = nil
	return reason
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()
}

// closeConn closes the current socket exactly once and clears the handle so a
// second call is a no-op.
func (m *Manager) closeConn() {
	m.connMu.Lock()
	conn := m.conn
	m.conn = nil
	m.connMu.Unlock()

	if conn == nil {
		return
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(m.cfg.CloseTimeout),
	)
	conn.Close()
}

// write serializes socket writes; gorilla allows only one concurrent writer.
func (m *Manager) write(data []byte) error {
	m.connMu.Lock()
	conn := m.conn
	m.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
