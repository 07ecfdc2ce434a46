// Package transcriber uploads audio to a Whisper-compatible endpoint and
// returns the SRT text it produces.
package transcriber
