// Package metrics exposes feed health as Prometheus metrics.
//
// Key metrics:
//   - WebSocket connection state and uptime
//   - Message, reconnect and disconnect counts
//   - Last-message age for staleness alerting
//   - Consecutive connection failure streak
package metrics
