// Package transcript holds the in-memory model for a transcribed recording:
// ordered time-bounded segments, the vocabulary tokens extracted from them,
// and the index-tagged codec that carries segment text across an opaque
// translation call without losing segment boundaries.
//
// A Transcript owns its Segments and Segments own their Tokens; later
// pipeline stages attach translations, archival references, and card ids in
// place but never reorder or remove segments.
package transcript
