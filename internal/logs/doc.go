// Package logs reads daemon log files for the CLI: the last N lines of a
// file, incremental reads from a byte offset, and a bounded wait for new
// lines so "instantcards logs --follow" can poll without busy-looping.
package logs
