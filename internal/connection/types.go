package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no messages)")
	ErrRemoteClosed    = errors.New("remote closed connection")
)

// Subscription is an opaque descriptor sent verbatim inside a subscribe
// envelope (e.g. {"type": "trades", "coin": "BTC"}).
type Subscription map[string]any

// Message is a decoded data frame delivered to the message handler.
type Message struct {
	Channel    string         // Value of the "channel" field, empty if absent
	Payload    map[string]any // Decoded frame
	Raw        []byte         // Raw frame bytes as received
	ReceivedAt time.Time      // Local timestamp when the frame was read
}

// subscribeRequest is the subscribe envelope sent after every connect.
type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription Subscription `json:"subscription"`
}

// pingRequest is the outbound liveness probe.
type pingRequest struct {
	Method string `json:"method"`
}

// channelPong tags the inbound liveness ack; frames on this channel are
// consumed and never forwarded.
const channelPong = "pong"

// Config holds the WebSocket connection tunables.
type Config struct {
	URL string // WebSocket URL (e.g., wss://api.hyperliquid.xyz/ws)

	MaxReconnectAttempts     int           // Consecutive-failure ceiling before FatalError
	InitialReconnectDelay    time.Duration // First backoff delay
	MaxReconnectDelay        time.Duration // Backoff saturation point
	ReconnectDelayMultiplier float64       // Backoff growth factor

	PingInterval   time.Duration // Heartbeat cadence
	PingTimeout    time.Duration // Pong grace window (log-only on miss)
	MessageTimeout time.Duration // Max silence before the connection is declared stale

	ConnectTimeout time.Duration // Bound on the dial/handshake
	CloseTimeout   time.Duration // Bound on the close handshake
	WriteTimeout   time.Duration // Write deadline for sends
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts:     10,
		InitialReconnectDelay:    1 * time.Second,
		MaxReconnectDelay:        60 * time.Second,
		ReconnectDelayMultiplier: 2.0,
		PingInterval:             15 * time.Second,
		PingTimeout:              10 * time.Second,
		MessageTimeout:           60 * time.Second,
		ConnectTimeout:           10 * time.Second,
		CloseTimeout:             5 * time.Second,
		WriteTimeout:             5 * time.Second,
	}
}
