package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/regexyl/instantcards/internal/archive"
	"github.com/regexyl/instantcards/internal/cards"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/notifications"
	"github.com/regexyl/instantcards/internal/transcript"
)

// Run processes one job to completion. The returned error is non-nil only
// for failures before the fan-out (acquisition, transcription, parsing) and
// for result persistence failures; branch failures are embedded in the
// result instead.
func (p *Pipeline) Run(ctx context.Context, job *jobs.Job) (*Result, error) {
	logger := p.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source_type", string(job.SourceType)),
	)
	start := time.Now()
	logger.Info("job processing started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source", job.Source))

	p.markStatus(ctx, logger, job, jobs.StatusProcessing)

	audioPath, subtitleText, err := p.acquire(ctx, job)
	if err != nil {
		return nil, p.fail(ctx, logger, job, "acquire", err)
	}
	if audioPath != "" && audioPath != job.AudioPath {
		if err := p.deps.Store.UpdateAudioPath(ctx, job.ID, audioPath); err != nil {
			logging.WarnWithContext(logger, "audio path update failed", "job_audio_path_update_failed",
				logging.Error(err))
		} else {
			job.AudioPath = audioPath
		}
	}

	if subtitleText == "" {
		subtitleText, err = p.deps.Transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, p.fail(ctx, logger, job, "transcribe", err)
		}
	}

	tr, err := transcript.Parse(subtitleText)
	if err != nil {
		return nil, p.fail(ctx, logger, job, "parse", err)
	}
	logger.Info("transcript parsed",
		logging.Int("segments", tr.SegmentCount()),
		logging.Float64("duration_seconds", tr.Duration()))

	branches := p.runBranches(ctx, logger, job.ID, audioPath, tr)
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, logger, job, "branches", err)
	}

	segReport, segErr := p.deps.SegmentCards.CreateSegmentCards(ctx, deckName(job), tr)
	if segErr != nil {
		logging.WarnWithContext(logger, "segment card phase failed", "segment_cards_failed",
			logging.Error(segErr),
			logging.String(logging.FieldImpact, "job completes without a per-segment deck"))
		branches[keySegmentCards] = branchFailure{Error: segErr.Error()}
	} else {
		branches[keySegmentCards] = segReport
	}

	p.markStatus(ctx, logger, job, jobs.StatusCardsComplete)

	if ref, storeErr := p.deps.Archiver.StoreTranscript(ctx, job.ID, tr); storeErr != nil {
		logging.WarnWithContext(logger, "transcript payload store failed", "transcript_store_failed",
			logging.Error(storeErr),
			logging.String(logging.FieldImpact, "no archived translation data for this job"))
	} else if report, ok := branches[keyStoreAudio].(archive.Report); ok {
		report.TranslationPath = ref
		branches[keyStoreAudio] = report
	}

	result := buildResult(job, audioPath, tr, branches)
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, p.fail(ctx, logger, job, "encode result", fmt.Errorf("encode result: %w", err))
	}
	if err := p.deps.Store.SetResult(ctx, job.ID, jobs.StatusCompleted, string(encoded)); err != nil {
		return nil, p.fail(ctx, logger, job, "persist result", fmt.Errorf("persist result: %w", err))
	}
	job.Status = jobs.StatusCompleted
	job.ResultJSON = string(encoded)

	elapsed := time.Since(start)
	logger.Info("job processing completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("blocks", tr.SegmentCount()),
		logging.Int("total_atoms", tr.TokenCount()),
		logging.Int("audio_segments", tr.ArchivedCount()),
		logging.Duration("elapsed", elapsed))

	p.notifyCompleted(ctx, logger, job.ID, branches, elapsed)
	return result, nil
}

// acquire resolves the job source into a local audio path, inline subtitle
// text, or an error. URL sources are downloaded, audio sources are verified
// on disk, and subtitle sources skip audio entirely.
func (p *Pipeline) acquire(ctx context.Context, job *jobs.Job) (audioPath, subtitleText string, err error) {
	switch job.SourceType {
	case jobs.SourceURL:
		path, err := p.deps.Fetcher.FetchAudio(ctx, job.Source, job.ID)
		if err != nil {
			return "", "", fmt.Errorf("fetch audio: %w", err)
		}
		return path, "", nil
	case jobs.SourceAudio:
		if _, err := os.Stat(job.Source); err != nil {
			return "", "", fmt.Errorf("audio source: %w", err)
		}
		return job.Source, "", nil
	case jobs.SourceSubtitle:
		if strings.Contains(job.Source, "-->") {
			return "", job.Source, nil
		}
		data, err := os.ReadFile(job.Source)
		if err != nil {
			return "", "", fmt.Errorf("subtitle source: %w", err)
		}
		return "", string(data), nil
	default:
		return "", "", fmt.Errorf("unsupported source type %q", job.SourceType)
	}
}

// deckName derives the per-job deck name. File-backed sources use the file's
// base name without extension; URL sources use the job id, which also names
// the downloaded audio file.
func deckName(job *jobs.Job) string {
	switch job.SourceType {
	case jobs.SourceAudio:
		return baseName(job.Source)
	case jobs.SourceSubtitle:
		if !strings.Contains(job.Source, "-->") {
			return baseName(job.Source)
		}
	}
	return job.ID
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// markStatus records a lifecycle transition. The status row is a side
// channel for observers; a failed write never stops the run.
func (p *Pipeline) markStatus(ctx context.Context, logger *slog.Logger, job *jobs.Job, status jobs.Status) {
	if err := p.deps.Store.UpdateStatus(ctx, job.ID, status); err != nil {
		logging.WarnWithContext(logger, "status update failed", "job_status_update_failed",
			logging.String("status", string(status)),
			logging.Error(err))
		return
	}
	job.Status = status
}

// fail records a job-level failure and sends the failure notification.
// Shutdown cancellation is not recorded as a failure; the job keeps its
// current status.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, job *jobs.Job, stage string, err error) error {
	if errors.Is(err, context.Canceled) {
		logger.Debug("job interrupted by shutdown", logging.String(logging.FieldStage, stage))
		return err
	}

	logger.Error("job processing failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldStage, stage),
		logging.Error(err))

	if storeErr := p.deps.Store.SetFailed(ctx, job.ID, err.Error()); storeErr != nil {
		logging.WarnWithContext(logger, "failure status update failed", "job_status_update_failed",
			logging.Error(storeErr))
	} else {
		job.Status = jobs.StatusFailed
		job.ErrorMessage = err.Error()
	}

	if notifyErr := p.deps.Notifier.NotifyJobFailed(ctx, job.ID, job.Source, err.Error()); notifyErr != nil {
		logging.WarnWithContext(logger, "failure notification failed", "notification_send_failed",
			logging.Error(notifyErr),
			logging.String(logging.FieldImpact, "failure recorded but no email was sent"))
	}
	return err
}

// notifyCompleted sends the completion email. Card counts come from the two
// card phases when they succeeded; a failed phase contributes zero.
func (p *Pipeline) notifyCompleted(ctx context.Context, logger *slog.Logger, jobID string, branches map[string]any, elapsed time.Duration) {
	stats := notifications.Stats{ProcessingTime: elapsed}
	if report, ok := branches[keyTokenCards].(cards.Report); ok {
		stats.NewWords = report.Created
		stats.CardsCreated += report.Created
	}
	if report, ok := branches[keySegmentCards].(cards.SegmentReport); ok {
		stats.CardsCreated += report.Created
	}

	if err := p.deps.Notifier.NotifyJobCompleted(ctx, jobID, stats); err != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notification_send_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job completed but no email was sent"))
	}
}
