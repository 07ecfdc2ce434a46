package cards

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/services/mochi"
	"github.com/regexyl/instantcards/internal/transcript"
)

// TokenCreator creates one vocabulary card per distinct token surface and
// broadcasts the resulting ids to every occurrence in the transcript.
type TokenCreator struct {
	api     CardAPI
	catalog Catalog
	cfg     config.Cards
	logger  *slog.Logger
	opts    options
}

// NewTokenCreator constructs a token-card creator.
func NewTokenCreator(api CardAPI, catalog Catalog, cfg config.Cards, logger *slog.Logger, opts ...Option) *TokenCreator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TokenCreator{
		api:     api,
		catalog: catalog,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "token_cards"),
		opts:    o,
	}
}

// CreateTokenCards ensures every distinct surface in the transcript has a
// remote card. Existing cards come from the catalog in one batched lookup;
// the rest are created concurrently. Per-surface failures land in the report,
// not in the returned error; only the upfront lookup can fail the phase.
func (c *TokenCreator) CreateTokenCards(ctx context.Context, tr *transcript.Transcript) (Report, error) {
	surfaces := tr.DistinctSurfaces()
	report := Report{Total: len(surfaces)}
	if len(surfaces) == 0 {
		return report, nil
	}

	existing, err := c.catalog.LookupCardIDs(ctx, surfaces)
	if err != nil {
		return report, fmt.Errorf("lookup existing cards: %w", err)
	}
	report.Existing = len(existing)

	var missing []string
	for _, surface := range surfaces {
		if _, ok := existing[surface]; !ok {
			missing = append(missing, surface)
		}
	}

	created := make(map[string]string, len(missing))
	var itemErrs []ItemError

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.opts.workers)
	)
	for _, surface := range missing {
		wg.Add(1)
		sem <- struct{}{}
		go func(surface string) {
			defer wg.Done()
			defer func() { <-sem }()

			id, err := createWithRetry(ctx, c.opts, func(ctx context.Context) (*mochi.Card, error) {
				return c.api.CreateCard(ctx, c.request(surface))
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				itemErrs = append(itemErrs, ItemError{Value: surface, Error: err.Error()})
				logging.WarnWithContext(c.logger, "token card creation exhausted retries", "token_card_failed",
					logging.String(logging.FieldSurface, surface),
					logging.Error(err),
					logging.String(logging.FieldImpact, "token left without card id"))
				return
			}
			created[surface] = id
		}(surface)
	}
	wg.Wait()

	report.Created = len(created)
	sort.Slice(itemErrs, func(i, j int) bool { return itemErrs[i].Value < itemErrs[j].Value })
	report.Errors = itemErrs

	ids := make(map[string]string, len(existing)+len(created))
	for surface, id := range existing {
		ids[surface] = id
	}
	for surface, id := range created {
		ids[surface] = id
	}
	tr.AssignCardIDs(ids)

	// The cards exist remotely either way; a catalog write failure only
	// costs a redundant creation attempt on some future job.
	if len(created) > 0 {
		if err := c.catalog.SaveCardIDs(ctx, created); err != nil {
			logging.WarnWithContext(c.logger, "card catalog update failed", "card_catalog_update_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "future jobs may recreate these cards"))
		}
	}

	c.logger.Info("token cards ensured",
		logging.Int("total", report.Total),
		logging.Int("existing", report.Existing),
		logging.Int("created", report.Created),
		logging.Int("failed", len(report.Errors)))
	return report, nil
}

func (c *TokenCreator) request(surface string) mochi.CardRequest {
	req := mochi.CardRequest{
		DeckID:         c.cfg.VocabDeckID,
		ReviewReversed: true,
		// Creation time as position keeps the deck browsable in the order
		// words were encountered.
		Pos: c.opts.now().Unix(),
	}
	if c.cfg.VocabTemplateID != "" {
		fieldID := c.cfg.VocabFieldID
		req.TemplateID = c.cfg.VocabTemplateID
		req.Fields = map[string]mochi.Field{
			fieldID: {ID: fieldID, Value: surface},
		}
		return req
	}
	req.Content = surface
	return req
}
