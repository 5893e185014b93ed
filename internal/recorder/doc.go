// Package recorder persists dispatched market-data frames to TimescaleDB.
//
// Frames are buffered and written in batches, flushed on size or interval.
// The recorder sits behind the connection manager's message callback and must
// never block it; a full buffer drops the frame and counts the drop.
package recorder
