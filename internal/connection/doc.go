// Package connection implements the resilient WebSocket session to the
// market-data venue.
//
// The Connection Manager:
//   - Owns exactly one socket at a time and runs the connect/run/disconnect cycle
//   - Detects silent staleness via an application-level heartbeat
//   - Replays registered subscriptions after every successful connect
//   - Reconnects with exponential backoff, up to a configured attempt ceiling
//   - Guarantees the disconnect callback completes before any reconnect attempt
package connection
