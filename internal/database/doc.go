// Package database provides the TimescaleDB connection pool used by the
// frame recorder.
package database
