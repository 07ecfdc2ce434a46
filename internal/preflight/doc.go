// Package preflight provides readiness checks for the external tools,
// directories, and credentials a card-generation run depends on.
//
// The checks run in two contexts:
//   - The daemon logs a snapshot at startup so a misconfigured host is
//     visible before the first job fails.
//   - The CLI "instantcards status" command renders the same checks.
//
// Keeping the requirements list here avoids the two callers drifting apart.
package preflight
