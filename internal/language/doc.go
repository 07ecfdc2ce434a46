// Package language normalizes the language settings shared by the
// transcriber and translator. The transcription API expects ISO 639-1
// codes while translation prompts spell the language out, so both
// directions of the mapping live here.
package language
