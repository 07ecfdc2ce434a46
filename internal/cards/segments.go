package cards

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/services/mochi"
	"github.com/regexyl/instantcards/internal/transcript"
)

// SegmentCreator creates a deck for a job and one card per transcript
// segment inside it, linking each card back to the segment's token cards.
type SegmentCreator struct {
	api    CardAPI
	cfg    config.Cards
	logger *slog.Logger
	opts   options
	titler cases.Caser
}

// NewSegmentCreator constructs a segment-card creator.
func NewSegmentCreator(api CardAPI, cfg config.Cards, logger *slog.Logger, opts ...Option) *SegmentCreator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SegmentCreator{
		api:    api,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "segment_cards"),
		opts:   o,
		titler: cases.Title(language.Und),
	}
}

// CreateSegmentCards creates the per-job deck and one card per segment.
// A deck creation failure fails the whole phase; per-segment failures are
// reported in the result with the zero-based segment index as the value.
func (c *SegmentCreator) CreateSegmentCards(ctx context.Context, deckName string, tr *transcript.Transcript) (SegmentReport, error) {
	report := SegmentReport{Total: tr.SegmentCount()}
	if report.Total == 0 {
		return report, nil
	}
	deckName = strings.TrimSpace(deckName)
	if deckName == "" {
		return report, fmt.Errorf("create segment cards: deck name is required")
	}

	deck, err := c.api.CreateDeck(ctx, mochi.DeckRequest{
		Name:      c.titler.String(deckName),
		ParentID:  c.cfg.DeckParentID,
		ShowSides: true,
	})
	if err != nil {
		return report, fmt.Errorf("create deck: %w", err)
	}
	report.DeckID = deck.ID
	c.logger.Info("segment deck created",
		logging.String("deck_id", deck.ID),
		logging.String("deck_name", deckName))

	var itemErrs []ItemError
	var created int

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.opts.workers)
	)
	for i, segment := range tr.Segments {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, segment *transcript.Segment) {
			defer wg.Done()
			defer func() { <-sem }()

			id, err := createWithRetry(ctx, c.opts, func(ctx context.Context) (*mochi.Card, error) {
				return c.api.CreateCard(ctx, c.request(deck.ID, segment))
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				itemErrs = append(itemErrs, ItemError{Value: strconv.Itoa(i), Error: err.Error()})
				logging.WarnWithContext(c.logger, "segment card creation exhausted retries", "segment_card_failed",
					logging.Int(logging.FieldSegment, i),
					logging.Error(err),
					logging.String(logging.FieldImpact, "segment has no card in the deck"))
				return
			}
			segment.CardID = id
			created++
		}(i, segment)
	}
	wg.Wait()

	report.Created = created
	sort.Slice(itemErrs, func(a, b int) bool {
		ai, _ := strconv.Atoi(itemErrs[a].Value)
		bi, _ := strconv.Atoi(itemErrs[b].Value)
		return ai < bi
	})
	report.Errors = itemErrs

	c.logger.Info("segment cards created",
		logging.String("deck_id", deck.ID),
		logging.Int("total", report.Total),
		logging.Int("created", report.Created),
		logging.Int("failed", len(report.Errors)))
	return report, nil
}

// Segment cards carry no explicit position: token cards set one so they sort
// ahead of the segment cards that reference them.
func (c *SegmentCreator) request(deckID string, segment *transcript.Segment) mochi.CardRequest {
	req := mochi.CardRequest{
		DeckID:         deckID,
		ReviewReversed: true,
	}
	backlinks := segmentBacklinks(segment)
	if c.cfg.SegmentTemplateID != "" {
		req.TemplateID = c.cfg.SegmentTemplateID
		req.Fields = map[string]mochi.Field{
			mochi.NameFieldID: {ID: mochi.NameFieldID, Value: segment.Text},
		}
		if c.cfg.SegmentAudioFieldID != "" && segment.AudioRef != "" {
			req.Fields[c.cfg.SegmentAudioFieldID] = mochi.Field{ID: c.cfg.SegmentAudioFieldID, Value: segment.AudioRef}
		}
		if c.cfg.SegmentTranslationFieldID != "" {
			req.Fields[c.cfg.SegmentTranslationFieldID] = mochi.Field{ID: c.cfg.SegmentTranslationFieldID, Value: segment.Translated}
		}
		if c.cfg.SegmentBacklinksFieldID != "" {
			req.Fields[c.cfg.SegmentBacklinksFieldID] = mochi.Field{ID: c.cfg.SegmentBacklinksFieldID, Value: backlinks}
		}
		return req
	}

	var sb strings.Builder
	sb.WriteString(segment.Text)
	sb.WriteString("\n---\n")
	sb.WriteString(segment.Translated)
	if backlinks != "" {
		sb.WriteString("\n\n")
		sb.WriteString(backlinks)
	}
	req.Content = sb.String()
	return req
}

// segmentBacklinks renders one wiki-style link per token that has a card id,
// newline separated. Tokens that never got a card are skipped rather than
// rendered as dead links.
func segmentBacklinks(segment *transcript.Segment) string {
	var links []string
	for _, token := range segment.Tokens {
		if token.CardID == "" {
			continue
		}
		links = append(links, "[["+token.CardID+"]]")
	}
	return strings.Join(links, "\n")
}
