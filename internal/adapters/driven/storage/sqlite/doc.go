// Package sqlite implements the knowledge store on SQLite via
// modernc.org/sqlite (no cgo). One Store owns the database handle and
// hands out per-relation wrapper types implementing the driven ports.
//
// The database runs in WAL mode with a busy timeout, so concurrent
// ingestion pipelines and correlation runs can share it.
package sqlite
