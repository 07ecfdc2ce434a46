// Package notifications delivers job completion and failure emails through
// the Postmark transactional API. When no server token or recipient is
// configured, NewService returns a no-op implementation so callers never
// branch on configuration state.
package notifications
