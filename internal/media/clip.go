// Package media wraps the ffmpeg invocations used to cut per-segment audio
// clips out of a source recording.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultTrimTimeout = 30 * time.Second

// Executor abstracts command execution for the trimmer.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Trimmer cuts time-bounded clips from an audio file without re-encoding.
type Trimmer struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewTrimmer constructs a Trimmer for the provided ffmpeg binary. Each trim
// runs under a 30 second deadline.
func NewTrimmer(binary string) *Trimmer {
	return NewTrimmerWithExecutor(binary, defaultTrimTimeout, commandExecutor{})
}

// NewTrimmerWithExecutor allows injecting a custom executor and deadline for
// testing. A zero timeout disables the per-trim deadline.
func NewTrimmerWithExecutor(binary string, timeout time.Duration, exec Executor) *Trimmer {
	if exec == nil {
		exec = commandExecutor{}
	}
	return &Trimmer{binary: strings.TrimSpace(binary), timeout: timeout, exec: exec}
}

// Trim copies the span [start, end) of source into dest. Times are seconds
// from the start of the file; the stream is copied, not re-encoded, so cuts
// land on packet boundaries.
func (t *Trimmer) Trim(ctx context.Context, source, dest string, start, end float64) error {
	if t.binary == "" {
		return fmt.Errorf("trim clip: ffmpeg binary not configured")
	}
	if strings.TrimSpace(source) == "" || strings.TrimSpace(dest) == "" {
		return fmt.Errorf("trim clip: source and destination paths required")
	}
	if start < 0 || end <= start {
		return fmt.Errorf("trim clip: invalid span %.3f-%.3f", start, end)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", source,
		"-c", "copy",
		dest,
	}
	if output, err := t.exec.Run(ctx, t.binary, args); err != nil {
		return fmt.Errorf("ffmpeg trim: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// formatSeconds renders a time offset with millisecond precision, the
// resolution of the subtitle timestamps the spans come from.
func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
