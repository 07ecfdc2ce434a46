package cards

import (
	"context"
	"time"

	"github.com/regexyl/instantcards/internal/services"
	"github.com/regexyl/instantcards/internal/services/mochi"
)

const (
	defaultWorkerCount    = 6
	defaultMaxAttempts    = 4
	defaultBackoffInitial = time.Second
	defaultBackoffMax     = 30 * time.Second
)

// CardAPI is the remote card service surface the creators depend on.
type CardAPI interface {
	CreateCard(ctx context.Context, req mochi.CardRequest) (*mochi.Card, error)
	CreateDeck(ctx context.Context, req mochi.DeckRequest) (*mochi.Deck, error)
}

// Catalog persists the surface-to-card-id mapping between jobs so repeat
// vocabulary is looked up instead of re-created.
type Catalog interface {
	LookupCardIDs(ctx context.Context, surfaces []string) (map[string]string, error)
	SaveCardIDs(ctx context.Context, ids map[string]string) error
}

// ItemError records one value that permanently failed within a batch.
type ItemError struct {
	Value string `json:"value"`
	Error string `json:"error"`
}

// Report summarizes the token-card phase. Errors lists surfaces whose
// creation exhausted retries; callers treat a non-empty list as partial
// success, not failure.
type Report struct {
	Created  int         `json:"created"`
	Existing int         `json:"existing"`
	Total    int         `json:"total"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// SegmentReport summarizes the segment-card phase. Error values carry the
// zero-based segment index.
type SegmentReport struct {
	DeckID  string      `json:"deck_id"`
	Created int         `json:"created"`
	Total   int         `json:"total"`
	Errors  []ItemError `json:"errors,omitempty"`
}

type options struct {
	workers        int
	maxAttempts    int
	backoffInitial time.Duration
	backoffMax     time.Duration
	sleep          func(context.Context, time.Duration) error
	now            func() time.Time
}

func defaultOptions() options {
	return options{
		workers:        defaultWorkerCount,
		maxAttempts:    defaultMaxAttempts,
		backoffInitial: defaultBackoffInitial,
		backoffMax:     defaultBackoffMax,
		sleep:          services.SleepWithContext,
		now:            time.Now,
	}
}

// Option configures optional creator behavior.
type Option func(*options)

// WithWorkerCount bounds the number of in-flight creation requests.
func WithWorkerCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRetryMaxAttempts overrides the total attempts per item.
func WithRetryMaxAttempts(attempts int) Option {
	return func(o *options) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the retry backoff schedule.
func WithRetryBackoff(initial, max time.Duration) Option {
	return func(o *options) {
		if initial > 0 {
			o.backoffInitial = initial
		}
		if max > 0 {
			o.backoffMax = max
		}
	}
}

// WithSleeper overrides how retry delays are awaited (used in tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithClock overrides the time source used for card positions (used in
// tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// createWithRetry runs create until it succeeds, exhausts the attempt
// budget, or hits a non-retriable error. The backoff doubles per attempt up
// to the configured ceiling; only transient failures are retried.
func createWithRetry(ctx context.Context, o options, create func(context.Context) (*mochi.Card, error)) (string, error) {
	delay := o.backoffInitial
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		card, err := create(ctx)
		if err == nil {
			return card.ID, nil
		}
		lastErr = err
		if !services.IsRetriable(err) || attempt == o.maxAttempts {
			break
		}
		if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		delay *= 2
		if delay > o.backoffMax {
			delay = o.backoffMax
		}
	}
	return "", lastErr
}
