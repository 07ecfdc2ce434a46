// Package api defines wire-format types and converters for the daemon HTTP
// API layer. It translates internal job models into transport-friendly DTOs
// that clients can render without coupling to internal types.
//
// # Key Types
//
// Job: transport representation of a card-generation job with source, status,
// timestamps, and the persisted result payload.
//
// DaemonStatus: daemon running state, lock and database paths, and job counts.
//
// # Converters
//
// FromJob: jobs.Job -> Job with RFC3339 timestamps and result passthrough.
//
// MergeJobStats: status-keyed counts -> string-keyed counts for JSON payloads.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (jobs.Status, jobs.SourceType)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// Result records are passed through as json.RawMessage to avoid
// double-encoding the payload the pipeline already serialized.
package api
