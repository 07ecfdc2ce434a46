package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/services"
)

const defaultMaxAttempts = 3

// userAgents are rotated between attempts when the extractor reports bot
// detection.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Runner performs one download attempt.
type Runner func(ctx context.Context, url, outputPattern, userAgent string) error

// Fetcher acquires audio for jobs that start from a media URL.
type Fetcher struct {
	workDir     string
	logger      *slog.Logger
	maxAttempts int
	run         Runner
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewFetcher constructs a fetcher writing into workDir.
func NewFetcher(workDir string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		workDir:     workDir,
		logger:      logging.NewComponentLogger(logger, "ytdlp"),
		maxAttempts: defaultMaxAttempts,
		run:         runDownload,
		sleep:       services.SleepWithContext,
	}
}

// WithRunner allows injecting a custom download runner for tests.
func (f *Fetcher) WithRunner(run Runner) {
	if f != nil && run != nil {
		f.run = run
	}
}

// WithSleeper overrides how inter-attempt sleeps are performed.
func (f *Fetcher) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	if f != nil && sleep != nil {
		f.sleep = sleep
	}
}

// FetchAudio downloads url and returns the path of the extracted wav
// file, {workDir}/{jobID}.wav.
func (f *Fetcher) FetchAudio(ctx context.Context, url, jobID string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("ytdlp: url required")
	}
	if strings.TrimSpace(jobID) == "" {
		return "", errors.New("ytdlp: job id required")
	}
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return "", fmt.Errorf("ytdlp: ensure work dir: %w", err)
	}

	outputPattern := filepath.Join(f.workDir, jobID+".%(ext)s")
	audioPath := filepath.Join(f.workDir, jobID+".wav")

	attempts := f.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := f.run(ctx, url, outputPattern, userAgents[(attempt-1)%len(userAgents)])
		if err == nil {
			if _, statErr := os.Stat(audioPath); statErr != nil {
				return "", fmt.Errorf("ytdlp: audio file missing after download: %w", statErr)
			}
			return audioPath, nil
		}
		lastErr = err

		if !isBotDetection(err) || attempt == attempts {
			return "", fmt.Errorf("ytdlp: download failed: %w", err)
		}
		logging.WarnWithContext(f.logger, "download attempt tripped bot detection; rotating user agent", "ytdlp_bot_detection",
			logging.Int("attempt", attempt),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the extractor may need cookies if every attempt fails"),
			logging.String(logging.FieldImpact, "download delayed by retry backoff"))
		if err := f.sleep(ctx, retryPause()); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("ytdlp: download failed after %d attempts: %w", attempts, lastErr)
}

func (f *Fetcher) attempts() int {
	if f == nil || f.maxAttempts <= 0 {
		return 1
	}
	return f.maxAttempts
}

func isBotDetection(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Sign in to confirm you're not a bot")
}

// retryPause picks a delay between 2 and 5 seconds so rotated attempts
// do not land in a recognizable cadence.
func retryPause() time.Duration {
	return 2*time.Second + rand.N(3*time.Second)
}

func runDownload(ctx context.Context, url, outputPattern, userAgent string) error {
	dl := goytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("wav").
		AudioQuality("192").
		NoPlaylist().
		Quiet().
		NoWarnings().
		UserAgent(userAgent).
		Output(outputPattern)
	_, err := dl.Run(ctx, url)
	return err
}
