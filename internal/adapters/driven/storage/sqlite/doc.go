// Package sqlite records conversation turns in a SQLite file, by default
// ~/.parley/data/transcripts.db. It uses the pure Go modernc.org/sqlite
// driver in WAL mode, so readers do not block the recorder.
//
// The schema lives in numbered migrations; see package migrations.
package sqlite
