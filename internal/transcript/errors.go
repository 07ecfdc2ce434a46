package transcript

import "errors"

var (
	// ErrMalformedInput marks subtitle text that cannot be parsed into
	// well-formed cues. Parsing aborts on the first bad cue so no transcript
	// coverage is silently dropped.
	ErrMalformedInput = errors.New("malformed subtitle input")

	// ErrTagCollision marks segment text that already contains literal index
	// tags and would corrupt the round-trip encoding.
	ErrTagCollision = errors.New("segment text collides with index tags")

	// ErrTagMismatch marks translated text whose decoded tag set does not
	// cover every expected segment index exactly once.
	ErrTagMismatch = errors.New("translated text tags do not match segments")
)
