package connection

import (
	"context"
	"log/slog"
	"time"
)

// heartbeatMonitor probes liveness while a session is connected. Staleness is
// judged solely by MessageTimeout; a missed pong is logged but never forces a
// close, since pongs are an auxiliary hint and a false positive would cost
// more than a missed optimization.
type heartbeatMonitor struct {
	cfg     Config
	metrics *Metrics
	logger  *slog.Logger

	ping       func() error       // sends the liveness probe frame
	forceClose func(reason error) // closes the socket; self-inflicted disconnect
}

// run executes heartbeat cycles until the session ends. It returns
// ErrStaleConnection when it force-closed the socket for staleness, nil when
// the session context was canceled.
func (h *heartbeatMonitor) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.cfg.PingInterval):
		}

		if ctx.Err() != nil {
			return nil
		}

		if silence := h.metrics.TimeSinceLastMessage(); silence > h.cfg.MessageTimeout {
			h.logger.Warn("no messages within timeout, forcing disconnect",
				"silence", silenceString(silence),
				"message_timeout", h.cfg.MessageTimeout,
			)
			h.forceClose(ErrStaleConnection)
			return ErrStaleConnection
		}

		if err := h.ping(); err != nil {
			// The receive loop will surface a real transport failure.
			h.logger.Warn("failed to send ping", "error", err)
			continue
		}
		h.metrics.markPing(time.Now())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.cfg.PingTimeout):
		}

		if gap := h.metrics.timeSincePong(); gap > h.cfg.PingTimeout {
			h.logger.Warn("pong overdue", "gap", silenceString(gap), "ping_timeout", h.cfg.PingTimeout)
		}
	}
}

// silenceString renders a silence duration, with "never" for the no-message-yet case.
func silenceString(d time.Duration) string {
	if d == neverSeen {
		return "never"
	}
	return d.String()
}
