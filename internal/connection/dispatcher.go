package connection

import (
	"encoding/json"
	"log/slog"
	"time"
)

// dispatcher decodes inbound frames, consumes the reserved liveness ack, and
// forwards everything else to the caller-supplied handler. It is the sole
// writer of the message and pong timestamps.
type dispatcher struct {
	metrics   *Metrics
	logger    *slog.Logger
	onMessage func(Message)
}

func newDispatcher(metrics *Metrics, logger *slog.Logger, onMessage func(Message)) *dispatcher {
	return &dispatcher{
		metrics:   metrics,
		logger:    logger,
		onMessage: onMessage,
	}
}

// dispatch processes one inbound frame. Malformed frames and handler panics
// are logged and swallowed; nothing here may terminate the receive loop.
func (d *dispatcher) dispatch(raw []byte, receivedAt time.Time) {
	// Every inbound frame, even a pong or garbage, refreshes the staleness clock.
	d.metrics.markMessage(receivedAt)

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		d.logger.Warn("dropping undecodable frame", "error", err, "bytes", len(raw))
		return
	}

	channel, _ := payload["channel"].(string)
	if channel == channelPong {
		d.metrics.markPong(receivedAt)
		return
	}

	d.metrics.messagesReceived.Add(1)
	d.deliver(Message{
		Channel:    channel,
		Payload:    payload,
		Raw:        raw,
		ReceivedAt: receivedAt,
	})
}

// deliver invokes the handler, recovering a panic so a handler failure cannot
// kill the feed.
func (d *dispatcher) deliver(msg Message) {
	if d.onMessage == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handler panicked", "channel", msg.Channel, "panic", r)
		}
	}()
	d.onMessage(msg)
}
