// Package database provides SQLite-backed persistence for publish job
// history and API key records. The database runs in WAL mode and every
// query is instrumented with Prometheus counters and duration histograms.
package database
