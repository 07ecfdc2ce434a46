// Package jobs persists pipeline jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, status
// updates, result recording, and stats queries, plus the token-card catalog
// that remembers which vocabulary surfaces already have remote cards so
// repeat jobs skip re-creating them.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package jobs
