// Package archive implements the archival branch of a job: per-segment audio
// clips trimmed from the source recording and uploaded to the blob store, and
// the final transcript payload stored once translation has settled. A failed
// clip leaves its segment without an archival reference but never fails the
// branch.
package archive
