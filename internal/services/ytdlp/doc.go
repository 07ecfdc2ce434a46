// Package ytdlp downloads the audio track of a remote media URL into the
// work directory as a wav file, retrying with rotated user agents when
// the extractor trips bot detection.
package ytdlp
