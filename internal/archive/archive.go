package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/storage"
	"github.com/regexyl/instantcards/internal/transcript"
)

// Trimmer cuts the span [start, end) of a source media file into dest.
type Trimmer interface {
	Trim(ctx context.Context, source, dest string, start, end float64) error
}

// Report summarizes one archival run. TranslationPath stays empty until the
// transcript payload is stored after the translation branch settles.
type Report struct {
	TranslationPath     string  `json:"translation_path,omitempty"`
	BlocksCount         int     `json:"blocks_count"`
	SuccessfulSegments  int     `json:"successful_segments"`
	Duration            float64 `json:"duration"`
	AudioSegmentsFolder string  `json:"audio_segments_folder"`
}

// Archiver stores per-segment clips and transcript payloads for a job.
type Archiver struct {
	trimmer Trimmer
	store   storage.BlobStore
	logger  *slog.Logger
}

// NewArchiver constructs an archiver over the given trimmer and blob store.
func NewArchiver(trimmer Trimmer, store storage.BlobStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		trimmer: trimmer,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "archive"),
	}
}

// StoreSegments trims one clip per segment from audioPath and uploads each
// under audio_segments/{jobID}/. Successful uploads attach their reference to
// the segment in place. Individual clip failures are logged and skipped; only
// setup failures return an error.
func (a *Archiver) StoreSegments(ctx context.Context, jobID, audioPath string, tr *transcript.Transcript) (Report, error) {
	report := Report{}
	if strings.TrimSpace(jobID) == "" {
		return report, fmt.Errorf("archive segments: job id required")
	}
	if strings.TrimSpace(audioPath) == "" {
		return report, fmt.Errorf("archive segments: audio path required")
	}

	folder := "audio_segments/" + jobID
	report.BlocksCount = tr.SegmentCount()
	report.Duration = tr.Duration()
	report.AudioSegmentsFolder = folder + "/"
	if len(tr.Segments) == 0 {
		return report, nil
	}

	workDir, err := os.MkdirTemp("", "instantcards-clips-")
	if err != nil {
		return report, fmt.Errorf("archive segments: create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	for i, segment := range tr.Segments {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := clipName(i, segment.Start, segment.End)
		clipPath := filepath.Join(workDir, name)
		if err := a.trimmer.Trim(ctx, audioPath, clipPath, segment.Start, segment.End); err != nil {
			logging.WarnWithContext(a.logger, "clip extraction failed", "archive_clip_failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Int(logging.FieldSegment, i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment card will have no audio reference"))
			continue
		}

		ref, err := a.store.PutFile(ctx, folder+"/"+name, clipPath, "audio/wav")
		if err != nil {
			logging.WarnWithContext(a.logger, "clip upload failed", "archive_upload_failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Int(logging.FieldSegment, i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment card will have no audio reference"))
			continue
		}

		segment.AudioRef = ref
		report.SuccessfulSegments++
	}

	a.logger.Info("audio segments archived",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("segments", report.BlocksCount),
		logging.Int("stored", report.SuccessfulSegments),
		logging.String("folder", folder))
	return report, nil
}

// StoreTranscript uploads the serialized transcript payload under
// transcripts/{jobID}/ and returns its reference. Callers invoke it after the
// translation branch has settled so the stored payload carries whatever
// translations and card ids exist by then.
func (a *Archiver) StoreTranscript(ctx context.Context, jobID string, tr *transcript.Transcript) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("archive transcript: job id required")
	}

	data, err := json.MarshalIndent(tr.Payload(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive transcript: encode payload: %w", err)
	}

	key := "transcripts/" + jobID + "/translation_data.json"
	ref, err := a.store.Put(ctx, key, bytes.NewReader(data), "application/json")
	if err != nil {
		return "", fmt.Errorf("archive transcript: %w", err)
	}

	a.logger.Info("transcript payload stored",
		logging.String(logging.FieldJobID, jobID),
		logging.String("key", ref))
	return ref, nil
}

func clipName(index int, start, end float64) string {
	return fmt.Sprintf("segment_%03d_%.2f_%.2f.wav", index, start, end)
}
