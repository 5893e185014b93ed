// Package relay fans dispatched market-data frames out over Redis pub/sub.
//
// Each frame is published verbatim to <prefix>.<channel> so downstream
// consumers can subscribe to just the channels they care about. Publishing is
// best-effort; a failed publish is counted and logged but never blocks the
// connection manager's message callback.
package relay
