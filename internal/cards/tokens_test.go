package cards_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/regexyl/instantcards/internal/cards"
	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/services/mochi"
	"github.com/regexyl/instantcards/internal/transcript"
)

// fakeCardAPI records every request and answers with deterministic ids
// derived from the request so concurrent tests stay order-independent.
type fakeCardAPI struct {
	mu          sync.Mutex
	cardReqs    []mochi.CardRequest
	deckReqs    []mochi.DeckRequest
	transient   map[string]int
	permanent   map[string]bool
	deckErr     error
	stall       time.Duration
	inFlight    int
	maxInFlight int
}

func (f *fakeCardAPI) CreateCard(_ context.Context, req mochi.CardRequest) (*mochi.Card, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	stall := f.stall
	f.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.cardReqs = append(f.cardReqs, req)
	key := cardKey(req)
	if f.permanent[key] {
		return nil, &mochi.StatusError{StatusCode: 422, Body: "invalid template"}
	}
	if remaining := f.transient[key]; remaining > 0 {
		f.transient[key] = remaining - 1
		return nil, &mochi.StatusError{StatusCode: 503, Body: "service busy"}
	}
	return &mochi.Card{ID: "card-" + key}, nil
}

func (f *fakeCardAPI) CreateDeck(_ context.Context, req mochi.DeckRequest) (*mochi.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deckReqs = append(f.deckReqs, req)
	if f.deckErr != nil {
		return nil, f.deckErr
	}
	return &mochi.Deck{ID: "deck-job"}, nil
}

func (f *fakeCardAPI) cardCalls() []mochi.CardRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mochi.CardRequest(nil), f.cardReqs...)
}

func (f *fakeCardAPI) deckCalls() []mochi.DeckRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mochi.DeckRequest(nil), f.deckReqs...)
}

func (f *fakeCardAPI) callsFor(key string) int {
	count := 0
	for _, req := range f.cardCalls() {
		if cardKey(req) == key {
			count++
		}
	}
	return count
}

func (f *fakeCardAPI) requestFor(t *testing.T, key string) mochi.CardRequest {
	t.Helper()
	for _, req := range f.cardCalls() {
		if cardKey(req) == key {
			return req
		}
	}
	t.Fatalf("no card request recorded for %q", key)
	return mochi.CardRequest{}
}

// cardKey extracts the value a request is about: the name field, the single
// template field, or the first content line.
func cardKey(req mochi.CardRequest) string {
	if field, ok := req.Fields[mochi.NameFieldID]; ok {
		return field.Value
	}
	for _, field := range req.Fields {
		return field.Value
	}
	if i := strings.IndexByte(req.Content, '\n'); i >= 0 {
		return req.Content[:i]
	}
	return req.Content
}

type fakeCatalog struct {
	mu        sync.Mutex
	known     map[string]string
	lookups   [][]string
	saved     []map[string]string
	lookupErr error
	saveErr   error
}

func (f *fakeCatalog) LookupCardIDs(_ context.Context, surfaces []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, append([]string(nil), surfaces...))
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	found := make(map[string]string)
	for _, surface := range surfaces {
		if id, ok := f.known[surface]; ok {
			found[surface] = id
		}
	}
	return found, nil
}

func (f *fakeCatalog) SaveCardIDs(_ context.Context, ids map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := make(map[string]string, len(ids))
	for surface, id := range ids {
		copied[surface] = id
	}
	f.saved = append(f.saved, copied)
	return nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func mustSegment(t *testing.T, start, end float64, text string) *transcript.Segment {
	t.Helper()
	segment, err := transcript.NewSegment(start, end, text)
	if err != nil {
		t.Fatalf("NewSegment(%q): %v", text, err)
	}
	return segment
}

func noun(surface string) transcript.Token {
	return transcript.Token{Surface: surface, BaseForm: surface, PartOfSpeech: transcript.PosNoun}
}

// tokenizedTranscript has five distinct surfaces across two segments, with
// one surface repeated in both.
func tokenizedTranscript(t *testing.T) *transcript.Transcript {
	t.Helper()
	first := mustSegment(t, 0, 2, "猫が魚を食べる")
	first.AddTokens(noun("猫"), noun("魚"), noun("食べる"))
	second := mustSegment(t, 2, 4, "猫が勉強する")
	second.AddTokens(noun("猫"), noun("勉強"), noun("する"))
	return &transcript.Transcript{Segments: []*transcript.Segment{first, second}}
}

func vocabConfig() config.Cards {
	return config.Cards{
		VocabDeckID:     "deck-vocab",
		VocabTemplateID: "tmpl-vocab",
		VocabFieldID:    "fld-vocab",
	}
}

func newTokenCreator(api *fakeCardAPI, catalog *fakeCatalog, cfg config.Cards, opts ...cards.Option) *cards.TokenCreator {
	opts = append([]cards.Option{
		cards.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}, opts...)
	return cards.NewTokenCreator(api, catalog, cfg, logging.NewNop(), opts...)
}

func TestCreateTokenCardsCreatesOnlyMissingSurfaces(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{known: map[string]string{"猫": "card-cat", "魚": "card-fish"}}
	tr := tokenizedTranscript(t)

	report, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Total != 5 || report.Existing != 2 || report.Created != 3 {
		t.Fatalf("report = %+v, want total 5, existing 2, created 3", report)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("report.Errors = %v, want none", report.Errors)
	}
	if calls := api.cardCalls(); len(calls) != 3 {
		t.Fatalf("creation requests = %d, want 3", len(calls))
	}

	for _, segment := range tr.Segments {
		for _, token := range segment.Tokens {
			if token.CardID == "" {
				t.Errorf("token %q has no card id", token.Surface)
			}
		}
	}
	if got := tr.Segments[0].Tokens[0].CardID; got != "card-cat" {
		t.Errorf("existing surface card id = %q, want %q", got, "card-cat")
	}
	if got := tr.Segments[1].Tokens[0].CardID; got != "card-cat" {
		t.Errorf("repeated surface card id = %q, want %q", got, "card-cat")
	}

	if len(catalog.saved) != 1 {
		t.Fatalf("catalog saves = %d, want 1", len(catalog.saved))
	}
	saved := catalog.saved[0]
	if len(saved) != 3 {
		t.Fatalf("saved entries = %v, want the 3 created surfaces", saved)
	}
	for _, surface := range []string{"食べる", "勉強", "する"} {
		if saved[surface] != "card-"+surface {
			t.Errorf("saved[%q] = %q, want %q", surface, saved[surface], "card-"+surface)
		}
	}
}

func TestCreateTokenCardsRequestShape(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{}
	fixed := time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)

	tr := &transcript.Transcript{Segments: []*transcript.Segment{mustSegment(t, 0, 1, "勉強")}}
	tr.Segments[0].AddTokens(noun("勉強"))

	creator := newTokenCreator(api, catalog, vocabConfig(), cards.WithClock(func() time.Time { return fixed }))
	if _, err := creator.CreateTokenCards(context.Background(), tr); err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}

	req := api.requestFor(t, "勉強")
	if req.DeckID != "deck-vocab" {
		t.Errorf("DeckID = %q, want %q", req.DeckID, "deck-vocab")
	}
	if req.TemplateID != "tmpl-vocab" {
		t.Errorf("TemplateID = %q, want %q", req.TemplateID, "tmpl-vocab")
	}
	if !req.ReviewReversed {
		t.Error("ReviewReversed = false, want true")
	}
	if req.Pos != fixed.Unix() {
		t.Errorf("Pos = %d, want %d", req.Pos, fixed.Unix())
	}
	field, ok := req.Fields["fld-vocab"]
	if !ok {
		t.Fatalf("Fields = %v, want entry for fld-vocab", req.Fields)
	}
	if field.ID != "fld-vocab" || field.Value != "勉強" {
		t.Errorf("field = %+v, want id fld-vocab value 勉強", field)
	}
	if req.Content != "" {
		t.Errorf("Content = %q, want empty for template card", req.Content)
	}
}

func TestCreateTokenCardsContentFallbackWithoutTemplate(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{}
	cfg := config.Cards{VocabDeckID: "deck-vocab"}

	tr := &transcript.Transcript{Segments: []*transcript.Segment{mustSegment(t, 0, 1, "勉強")}}
	tr.Segments[0].AddTokens(noun("勉強"))

	if _, err := newTokenCreator(api, catalog, cfg).CreateTokenCards(context.Background(), tr); err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}

	req := api.requestFor(t, "勉強")
	if req.Content != "勉強" {
		t.Errorf("Content = %q, want surface text", req.Content)
	}
	if req.TemplateID != "" || len(req.Fields) != 0 {
		t.Errorf("request = %+v, want no template fields", req)
	}
}

func TestCreateTokenCardsRetriesTransientFailures(t *testing.T) {
	api := &fakeCardAPI{transient: map[string]int{"勉強": 3}}
	catalog := &fakeCatalog{}
	recorder := &sleepRecorder{}

	tr := &transcript.Transcript{Segments: []*transcript.Segment{mustSegment(t, 0, 1, "勉強")}}
	tr.Segments[0].AddTokens(noun("勉強"))

	creator := newTokenCreator(api, catalog, vocabConfig(),
		cards.WithSleeper(recorder.sleep),
		cards.WithRetryBackoff(time.Second, 2*time.Second))
	report, err := creator.CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Created != 1 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v, want 1 created and no errors", report)
	}
	if calls := api.callsFor("勉強"); calls != 4 {
		t.Errorf("attempts = %d, want 4", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}
	got := recorder.recorded()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCreateTokenCardsReportsExhaustedRetries(t *testing.T) {
	api := &fakeCardAPI{transient: map[string]int{"勉強": 10}}
	catalog := &fakeCatalog{}
	tr := tokenizedTranscript(t)

	report, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v, want partial success", err)
	}
	if report.Created != 4 || report.Existing != 0 || report.Total != 5 {
		t.Fatalf("report = %+v, want created 4 of total 5", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("report.Errors = %v, want one entry", report.Errors)
	}
	if report.Errors[0].Value != "勉強" {
		t.Errorf("failed value = %q, want 勉強", report.Errors[0].Value)
	}
	if !strings.Contains(report.Errors[0].Error, "503") {
		t.Errorf("failed error = %q, want the upstream status", report.Errors[0].Error)
	}
	if calls := api.callsFor("勉強"); calls != 4 {
		t.Errorf("attempts = %d, want the full retry budget of 4", calls)
	}

	for _, token := range tr.Segments[1].Tokens {
		if token.Surface == "勉強" && token.CardID != "" {
			t.Errorf("failed surface was assigned card id %q", token.CardID)
		}
		if token.Surface == "する" && token.CardID == "" {
			t.Error("surviving surface する has no card id")
		}
	}
	if len(catalog.saved) != 1 {
		t.Fatalf("catalog saves = %d, want 1", len(catalog.saved))
	}
	if _, ok := catalog.saved[0]["勉強"]; ok {
		t.Error("failed surface was written to the catalog")
	}
}

func TestCreateTokenCardsPermanentFailureSkipsRetry(t *testing.T) {
	api := &fakeCardAPI{permanent: map[string]bool{"勉強": true}}
	catalog := &fakeCatalog{}
	recorder := &sleepRecorder{}

	tr := &transcript.Transcript{Segments: []*transcript.Segment{mustSegment(t, 0, 1, "勉強")}}
	tr.Segments[0].AddTokens(noun("勉強"))

	creator := newTokenCreator(api, catalog, vocabConfig(), cards.WithSleeper(recorder.sleep))
	report, err := creator.CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Created != 0 || len(report.Errors) != 1 {
		t.Fatalf("report = %+v, want one failure", report)
	}
	if calls := api.callsFor("勉強"); calls != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retriable error", calls)
	}
	if sleeps := recorder.recorded(); len(sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", sleeps)
	}
}

func TestCreateTokenCardsLookupFailureFailsPhase(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{lookupErr: errors.New("catalog offline")}
	tr := tokenizedTranscript(t)

	_, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), tr)
	if err == nil {
		t.Fatal("CreateTokenCards() error = nil, want lookup failure")
	}
	if !strings.Contains(err.Error(), "lookup existing cards") {
		t.Errorf("error = %v, want lookup context", err)
	}
	if calls := api.cardCalls(); len(calls) != 0 {
		t.Errorf("creation requests = %d, want none after failed lookup", len(calls))
	}
}

func TestCreateTokenCardsCatalogSaveFailureTolerated(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{saveErr: errors.New("disk full")}
	tr := tokenizedTranscript(t)

	report, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v, want save failure swallowed", err)
	}
	if report.Created != 5 {
		t.Fatalf("report.Created = %d, want 5", report.Created)
	}
	for _, segment := range tr.Segments {
		for _, token := range segment.Tokens {
			if token.CardID == "" {
				t.Errorf("token %q has no card id", token.Surface)
			}
		}
	}
}

func TestCreateTokenCardsAllExisting(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{known: map[string]string{
		"猫": "card-cat", "魚": "card-fish", "食べる": "card-eat", "勉強": "card-study", "する": "card-do",
	}}
	tr := tokenizedTranscript(t)

	report, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Created != 0 || report.Existing != 5 {
		t.Fatalf("report = %+v, want all existing", report)
	}
	if calls := api.cardCalls(); len(calls) != 0 {
		t.Errorf("creation requests = %d, want none", len(calls))
	}
	if len(catalog.saved) != 0 {
		t.Errorf("catalog saves = %d, want none when nothing was created", len(catalog.saved))
	}
}

func TestCreateTokenCardsEmptyTranscript(t *testing.T) {
	api := &fakeCardAPI{}
	catalog := &fakeCatalog{}

	report, err := newTokenCreator(api, catalog, vocabConfig()).CreateTokenCards(context.Background(), &transcript.Transcript{})
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Total != 0 || report.Created != 0 || report.Existing != 0 {
		t.Fatalf("report = %+v, want zero report", report)
	}
	if len(catalog.lookups) != 0 {
		t.Errorf("lookups = %d, want none for an empty transcript", len(catalog.lookups))
	}
}

func TestCreateTokenCardsBoundsConcurrency(t *testing.T) {
	api := &fakeCardAPI{stall: 20 * time.Millisecond}
	catalog := &fakeCatalog{}

	segment := mustSegment(t, 0, 5, "長い文")
	surfaces := []string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十", "百", "千"}
	for _, surface := range surfaces {
		segment.AddTokens(noun(surface))
	}
	tr := &transcript.Transcript{Segments: []*transcript.Segment{segment}}

	creator := newTokenCreator(api, catalog, vocabConfig(), cards.WithWorkerCount(3))
	report, err := creator.CreateTokenCards(context.Background(), tr)
	if err != nil {
		t.Fatalf("CreateTokenCards() error = %v", err)
	}
	if report.Created != len(surfaces) {
		t.Fatalf("report.Created = %d, want %d", report.Created, len(surfaces))
	}
	if api.maxInFlight > 3 {
		t.Errorf("max in-flight requests = %d, want at most 3", api.maxInFlight)
	}
}
