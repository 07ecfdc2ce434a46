package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/regexyl/instantcards/internal/archive"
	"github.com/regexyl/instantcards/internal/cards"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/transcript"
)

// Keys in the per-branch results map.
const (
	keyStoreAudio   = "store_audio"
	keyTranslate    = "translate"
	keyTokenCards   = "extract_and_create_atom_cards"
	keySegmentCards = "create_block_cards"
)

// branchFailure is the value recorded for a branch that returned an error.
// Branch failures never fail the job.
type branchFailure struct {
	Error string `json:"error"`
}

// translateReport summarizes the translation branch.
type translateReport struct {
	TranslatedText   []string `json:"translated_text"`
	BlocksTranslated int      `json:"blocks_translated"`
}

// runBranches executes the three independent branches concurrently and
// waits for all of them regardless of individual outcome. Each branch owns
// a disjoint set of segment fields (archival references, translations,
// tokens with card ids), so they mutate the shared transcript without
// coordination.
func (p *Pipeline) runBranches(ctx context.Context, logger *slog.Logger, jobID, audioPath string, tr *transcript.Transcript) map[string]any {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]any, 4)
	)

	spawn := func(key string, fn func(context.Context) (any, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchLogger := logger.With(logging.String(logging.FieldBranch, key))
			branchStart := time.Now()
			branchLogger.Info("branch started",
				logging.String(logging.FieldEventType, "branch_start"))

			value, err := fn(ctx)
			if err != nil {
				logging.WarnWithContext(branchLogger, "branch failed", "branch_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "result records the branch error; sibling branches continue"))
			} else {
				branchLogger.Info("branch completed",
					logging.String(logging.FieldEventType, "branch_complete"),
					logging.Duration("branch_duration", time.Since(branchStart)))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[key] = branchFailure{Error: err.Error()}
				return
			}
			results[key] = value
		}()
	}

	spawn(keyStoreAudio, func(ctx context.Context) (any, error) {
		return p.storeAudioBranch(ctx, jobID, audioPath, tr)
	})
	spawn(keyTranslate, func(ctx context.Context) (any, error) {
		return p.translateBranch(ctx, tr)
	})
	spawn(keyTokenCards, func(ctx context.Context) (any, error) {
		return p.tokenCardBranch(ctx, tr)
	})

	wg.Wait()
	return results
}

// storeAudioBranch clips and uploads one audio segment per transcript
// segment. Subtitle-only jobs carry no recording, so the branch reports the
// segment counts with nothing stored.
func (p *Pipeline) storeAudioBranch(ctx context.Context, jobID, audioPath string, tr *transcript.Transcript) (archive.Report, error) {
	if audioPath == "" {
		return archive.Report{
			BlocksCount: tr.SegmentCount(),
			Duration:    tr.Duration(),
		}, nil
	}
	return p.deps.Archiver.StoreSegments(ctx, jobID, audioPath, tr)
}

// translateBranch round-trips the tagged transcript through the translation
// model and attaches one translation per segment.
func (p *Pipeline) translateBranch(ctx context.Context, tr *transcript.Transcript) (translateReport, error) {
	var report translateReport

	tagged, err := transcript.EncodeTagged(tr)
	if err != nil {
		return report, err
	}
	translated, err := p.deps.Translator.Translate(ctx, tagged)
	if err != nil {
		return report, err
	}
	texts, err := transcript.DecodeTagged(translated, tr.SegmentCount())
	if err != nil {
		return report, err
	}
	if err := tr.SetTranslations(texts); err != nil {
		return report, err
	}

	report.TranslatedText = texts
	report.BlocksTranslated = len(texts)
	return report, nil
}

// tokenCardBranch extracts vocabulary tokens segment by segment, then
// ensures a card exists for every distinct surface.
func (p *Pipeline) tokenCardBranch(ctx context.Context, tr *transcript.Transcript) (cards.Report, error) {
	for i, segment := range tr.Segments {
		tokens, err := p.deps.Extractor.ExtractTokens(ctx, segment.Text)
		if err != nil {
			return cards.Report{}, fmt.Errorf("extract tokens for segment %d: %w", i, err)
		}
		segment.AddTokens(tokens...)
	}
	return p.deps.TokenCards.CreateTokenCards(ctx, tr)
}
