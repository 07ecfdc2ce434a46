// Package storage persists archival artifacts under stable slash-separated
// keys. BlobStore is the seam between the archive branch and the backing
// medium; the bundled backend writes beneath a root directory on the local
// filesystem and returns the key itself as the artifact reference.
package storage
