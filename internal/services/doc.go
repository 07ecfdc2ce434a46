// Package services provides shared plumbing for external service clients:
// sentinel error classification, retry eligibility checks, and context
// annotation helpers used by structured logging.
package services
