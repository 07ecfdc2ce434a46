// Package pipeline drives one job end to end: acquire the source, produce a
// transcript, fan out into the archival, translation, and token-card
// branches, join, create per-segment cards, and persist the aggregated
// result. Branch failures become structured per-branch error values; only
// failures before the fan-out fail the job.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/regexyl/instantcards/internal/archive"
	"github.com/regexyl/instantcards/internal/cards"
	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/media"
	"github.com/regexyl/instantcards/internal/notifications"
	"github.com/regexyl/instantcards/internal/services/mochi"
	"github.com/regexyl/instantcards/internal/services/transcriber"
	"github.com/regexyl/instantcards/internal/services/translator"
	"github.com/regexyl/instantcards/internal/services/ytdlp"
	"github.com/regexyl/instantcards/internal/storage"
	"github.com/regexyl/instantcards/internal/tokenizer"
	"github.com/regexyl/instantcards/internal/transcript"
)

// AudioFetcher downloads a remote source into the local work directory.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, url, jobID string) (string, error)
}

// Transcriber converts an audio file into SRT subtitle text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Translator round-trips tagged transcript text through the translation
// model and returns the tagged response.
type Translator interface {
	Translate(ctx context.Context, tagged string) (string, error)
}

// TokenExtractor produces vocabulary tokens for one segment's text.
type TokenExtractor interface {
	ExtractTokens(ctx context.Context, text string) ([]transcript.Token, error)
}

// Archiver stores per-segment audio clips and the transcript payload.
type Archiver interface {
	StoreSegments(ctx context.Context, jobID, audioPath string, tr *transcript.Transcript) (archive.Report, error)
	StoreTranscript(ctx context.Context, jobID string, tr *transcript.Transcript) (string, error)
}

// TokenCardCreator ensures one vocabulary card per distinct token surface.
type TokenCardCreator interface {
	CreateTokenCards(ctx context.Context, tr *transcript.Transcript) (cards.Report, error)
}

// SegmentCardCreator creates the per-job deck and one card per segment.
type SegmentCardCreator interface {
	CreateSegmentCards(ctx context.Context, deckName string, tr *transcript.Transcript) (cards.SegmentReport, error)
}

// Deps bundles the collaborators a pipeline needs. Every field is required
// except Notifier, which defaults to the no-op notification service.
type Deps struct {
	Store        *jobs.Store
	Fetcher      AudioFetcher
	Transcriber  Transcriber
	Translator   Translator
	Extractor    TokenExtractor
	Archiver     Archiver
	TokenCards   TokenCardCreator
	SegmentCards SegmentCardCreator
	Notifier     notifications.Service
}

// Pipeline executes jobs against a fixed set of collaborators.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New constructs a pipeline over the supplied collaborators.
func New(deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Pipeline{
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// NewFromConfig wires the production collaborators from configuration and
// the shared jobs store.
func NewFromConfig(cfg *config.Config, store *jobs.Store, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config required")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline: jobs store required")
	}

	if backend := cfg.Storage.Backend; backend != "" && backend != "local" {
		return nil, fmt.Errorf("pipeline: unsupported storage backend %q", backend)
	}
	blobStore, err := storage.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open blob store: %w", err)
	}

	mecab := tokenizer.NewMeCab(
		cfg.Tokenizer.Binary,
		cfg.Tokenizer.DictionaryDir,
		time.Duration(cfg.Tokenizer.TimeoutSeconds)*time.Second,
	)
	mochiClient := mochi.NewClient(mochi.Config{
		BaseURL:        cfg.Cards.BaseURL,
		APIKey:         cfg.Cards.APIKey,
		TimeoutSeconds: cfg.Cards.TimeoutSeconds,
	})

	deps := Deps{
		Store:   store,
		Fetcher: ytdlp.NewFetcher(cfg.Paths.WorkDir, logger),
		Transcriber: transcriber.NewClient(transcriber.Config{
			BaseURL:        cfg.Transcriber.BaseURL,
			APIKey:         cfg.Transcriber.APIKey,
			Model:          cfg.Transcriber.Model,
			Language:       cfg.Transcriber.Language,
			TimeoutSeconds: cfg.Transcriber.TimeoutSeconds,
		}),
		Translator: translator.NewClient(translator.Config{
			BaseURL:        cfg.Translator.BaseURL,
			APIKey:         cfg.Translator.APIKey,
			Model:          cfg.Translator.Model,
			TargetLanguage: cfg.Translator.TargetLanguage,
			TimeoutSeconds: cfg.Translator.TimeoutSeconds,
		}),
		Extractor:    tokenizer.NewExtractor(mecab, logger),
		Archiver:     archive.NewArchiver(media.NewTrimmer(cfg.FFmpegBinary()), blobStore, logger),
		TokenCards:   cards.NewTokenCreator(mochiClient, store, cfg.Cards, logger),
		SegmentCards: cards.NewSegmentCreator(mochiClient, cfg.Cards, logger),
		Notifier:     notifications.NewService(cfg),
	}
	return New(deps, logger), nil
}
