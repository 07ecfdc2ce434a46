package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/regexyl/instantcards/internal/archive"
	"github.com/regexyl/instantcards/internal/cards"
	"github.com/regexyl/instantcards/internal/jobs"
	"github.com/regexyl/instantcards/internal/logging"
	"github.com/regexyl/instantcards/internal/notifications"
	"github.com/regexyl/instantcards/internal/pipeline"
	"github.com/regexyl/instantcards/internal/testsupport"
	"github.com/regexyl/instantcards/internal/transcript"
)

const twoCueSRT = "1\n00:00:00,000 --> 00:00:02,000\nこんにちは\n\n2\n00:00:02,000 --> 00:00:04,000\n世界\n"

type fakeFetcher struct {
	path  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchAudio(ctx context.Context, url, jobID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeTranscriber struct {
	srt     string
	err     error
	gotPath string
	calls   int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	f.gotPath = audioPath
	if f.err != nil {
		return "", f.err
	}
	return f.srt, nil
}

type fakeTranslator struct {
	fn        func(tagged string) (string, error)
	gotTagged string
	calls     int
}

func (f *fakeTranslator) Translate(ctx context.Context, tagged string) (string, error) {
	f.calls++
	f.gotTagged = tagged
	if f.fn != nil {
		return f.fn(tagged)
	}
	return tagged, nil
}

type fakeExtractor struct {
	tokens map[string][]transcript.Token
	err    error
}

func (f *fakeExtractor) ExtractTokens(ctx context.Context, text string) ([]transcript.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[text], nil
}

type fakeArchiver struct {
	segErr   error
	refErr   error
	gotAudio string
	segCalls int
	trCalls  int
}

func (f *fakeArchiver) StoreSegments(ctx context.Context, jobID, audioPath string, tr *transcript.Transcript) (archive.Report, error) {
	f.segCalls++
	f.gotAudio = audioPath
	if f.segErr != nil {
		return archive.Report{}, f.segErr
	}
	for i, segment := range tr.Segments {
		segment.AudioRef = fmt.Sprintf("audio_segments/%s/segment_%03d.wav", jobID, i)
	}
	return archive.Report{
		BlocksCount:         tr.SegmentCount(),
		SuccessfulSegments:  tr.SegmentCount(),
		Duration:            tr.Duration(),
		AudioSegmentsFolder: "audio_segments/" + jobID + "/",
	}, nil
}

func (f *fakeArchiver) StoreTranscript(ctx context.Context, jobID string, tr *transcript.Transcript) (string, error) {
	f.trCalls++
	if f.refErr != nil {
		return "", f.refErr
	}
	return "transcripts/" + jobID + "/translation_data.json", nil
}

type fakeTokenCards struct {
	err   error
	calls int
}

func (f *fakeTokenCards) CreateTokenCards(ctx context.Context, tr *transcript.Transcript) (cards.Report, error) {
	f.calls++
	if f.err != nil {
		return cards.Report{}, f.err
	}
	surfaces := tr.DistinctSurfaces()
	ids := make(map[string]string, len(surfaces))
	for _, surface := range surfaces {
		ids[surface] = "card-" + surface
	}
	tr.AssignCardIDs(ids)
	return cards.Report{Created: len(surfaces), Total: len(surfaces)}, nil
}

type fakeSegmentCards struct {
	err     error
	calls   int
	gotDeck string
}

func (f *fakeSegmentCards) CreateSegmentCards(ctx context.Context, deckName string, tr *transcript.Transcript) (cards.SegmentReport, error) {
	f.calls++
	f.gotDeck = deckName
	if f.err != nil {
		return cards.SegmentReport{}, f.err
	}
	for i, segment := range tr.Segments {
		segment.CardID = fmt.Sprintf("segment-card-%d", i)
	}
	return cards.SegmentReport{
		DeckID:  "deck-" + deckName,
		Created: tr.SegmentCount(),
		Total:   tr.SegmentCount(),
	}, nil
}

type completedCall struct {
	jobID string
	stats notifications.Stats
}

type failedCall struct {
	jobID   string
	source  string
	message string
}

type fakeNotifier struct {
	err       error
	completed []completedCall
	failed    []failedCall
}

func (f *fakeNotifier) NotifyJobCompleted(ctx context.Context, jobID string, stats notifications.Stats) error {
	f.completed = append(f.completed, completedCall{jobID: jobID, stats: stats})
	return f.err
}

func (f *fakeNotifier) NotifyJobFailed(ctx context.Context, jobID, source, errorMessage string) error {
	f.failed = append(f.failed, failedCall{jobID: jobID, source: source, message: errorMessage})
	return f.err
}

type fixture struct {
	store       *jobs.Store
	fetcher     *fakeFetcher
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	extractor   *fakeExtractor
	archiver    *fakeArchiver
	tokenCards  *fakeTokenCards
	segCards    *fakeSegmentCards
	notifier    *fakeNotifier
	pipeline    *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	fx := &fixture{
		store:       testsupport.MustOpenStore(t, cfg),
		fetcher:     &fakeFetcher{path: "/work/audio.wav"},
		transcriber: &fakeTranscriber{srt: twoCueSRT},
		translator:  &fakeTranslator{},
		extractor: &fakeExtractor{tokens: map[string][]transcript.Token{
			"こんにちは": {mustToken(t, "こんにちは")},
			"世界":    {mustToken(t, "世界")},
		}},
		archiver:   &fakeArchiver{},
		tokenCards: &fakeTokenCards{},
		segCards:   &fakeSegmentCards{},
		notifier:   &fakeNotifier{},
	}
	fx.pipeline = pipeline.New(pipeline.Deps{
		Store:        fx.store,
		Fetcher:      fx.fetcher,
		Transcriber:  fx.transcriber,
		Translator:   fx.translator,
		Extractor:    fx.extractor,
		Archiver:     fx.archiver,
		TokenCards:   fx.tokenCards,
		SegmentCards: fx.segCards,
		Notifier:     fx.notifier,
	}, logging.NewNop())
	return fx
}

func mustToken(t *testing.T, surface string) transcript.Token {
	t.Helper()
	token, err := transcript.NewToken(surface, surface, transcript.PosNoun, nil)
	if err != nil {
		t.Fatalf("NewToken(%q): %v", surface, err)
	}
	return token
}

func newJob(t *testing.T, store *jobs.Store, source string, sourceType jobs.SourceType) *jobs.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), source, sourceType)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func storedJob(t *testing.T, store *jobs.Store, id string) *jobs.Job {
	t.Helper()
	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%s): %v", id, err)
	}
	return job
}

func persistedResult(t *testing.T, store *jobs.Store, id string) map[string]any {
	t.Helper()
	job := storedJob(t, store, id)
	if job.ResultJSON == "" {
		t.Fatalf("job %s has no result json", id)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(job.ResultJSON), &decoded); err != nil {
		t.Fatalf("decode result json: %v", err)
	}
	return decoded
}

func branchEntry(t *testing.T, decoded map[string]any, key string) map[string]any {
	t.Helper()
	branches, ok := decoded["per_branch_results"].(map[string]any)
	if !ok {
		t.Fatalf("per_branch_results missing or malformed: %#v", decoded["per_branch_results"])
	}
	entry, ok := branches[key].(map[string]any)
	if !ok {
		t.Fatalf("branch %q missing or malformed: %#v", key, branches[key])
	}
	return entry
}

func TestRunURLSourceEndToEnd(t *testing.T) {
	fx := newFixture(t)
	fx.translator.fn = func(string) (string, error) {
		return "<0>hello</0> <1>world</1>", nil
	}
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	result, err := fx.pipeline.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != "success" {
		t.Errorf("result status = %q, want success", result.Status)
	}
	if result.JobID != job.ID {
		t.Errorf("result job id = %q, want %q", result.JobID, job.ID)
	}
	if result.AudioPath != "/work/audio.wav" {
		t.Errorf("result audio path = %q", result.AudioPath)
	}
	if result.BlocksCount != 2 || result.TotalAtoms != 2 || result.NewAtoms != 0 || result.AudioSegmentsCount != 2 {
		t.Errorf("unexpected result counts: %+v", result)
	}
	if result.Duration != 4 {
		t.Errorf("result duration = %v, want 4", result.Duration)
	}

	if fx.translator.gotTagged != "<0>こんにちは</0> <1>世界</1>" {
		t.Errorf("tagged payload = %q", fx.translator.gotTagged)
	}
	if fx.transcriber.gotPath != "/work/audio.wav" {
		t.Errorf("transcriber received path %q", fx.transcriber.gotPath)
	}

	blocks := result.TranslationData.Blocks
	if len(blocks) != 2 {
		t.Fatalf("translation data has %d blocks, want 2", len(blocks))
	}
	if blocks[0].TranslatedValue != "hello" || blocks[1].TranslatedValue != "world" {
		t.Errorf("translations not applied: %q, %q", blocks[0].TranslatedValue, blocks[1].TranslatedValue)
	}
	if len(blocks[0].Atoms) != 1 || blocks[0].Atoms[0].CardID != "card-こんにちは" {
		t.Errorf("token card ids not applied: %+v", blocks[0].Atoms)
	}
	if blocks[0].AudioURL == "" || blocks[1].AudioURL == "" {
		t.Errorf("audio references not attached: %q, %q", blocks[0].AudioURL, blocks[1].AudioURL)
	}

	stored := storedJob(t, fx.store, job.ID)
	if stored.Status != jobs.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if stored.AudioPath != "/work/audio.wav" {
		t.Errorf("stored audio path = %q", stored.AudioPath)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	wantKeys := []string{
		"status", "job_id", "audio_path", "blocks_count", "duration",
		"total_atoms", "new_atoms", "audio_segments_count",
		"per_branch_results", "translation_data",
	}
	for _, key := range wantKeys {
		if _, ok := decoded[key]; !ok {
			t.Errorf("result json missing key %q", key)
		}
	}
	if len(decoded) != len(wantKeys) {
		t.Errorf("result json has %d keys, want %d", len(decoded), len(wantKeys))
	}

	translateEntry := branchEntry(t, decoded, "translate")
	if got := translateEntry["blocks_translated"]; got != float64(2) {
		t.Errorf("blocks_translated = %v", got)
	}
	texts, _ := translateEntry["translated_text"].([]any)
	if len(texts) != 2 || texts[0] != "hello" || texts[1] != "world" {
		t.Errorf("translated_text = %v", texts)
	}

	storeEntry := branchEntry(t, decoded, "store_audio")
	if got := storeEntry["translation_path"]; got != "transcripts/"+job.ID+"/translation_data.json" {
		t.Errorf("translation_path = %v", got)
	}
	if got := storeEntry["successful_segments"]; got != float64(2) {
		t.Errorf("successful_segments = %v", got)
	}
	if got := storeEntry["audio_segments_folder"]; got != "audio_segments/"+job.ID+"/" {
		t.Errorf("audio_segments_folder = %v", got)
	}

	tokenEntry := branchEntry(t, decoded, "extract_and_create_atom_cards")
	if got := tokenEntry["created"]; got != float64(2) {
		t.Errorf("token cards created = %v", got)
	}
	segmentEntry := branchEntry(t, decoded, "create_block_cards")
	if got := segmentEntry["deck_id"]; got != "deck-"+job.ID {
		t.Errorf("segment deck id = %v", got)
	}

	if fx.segCards.gotDeck != job.ID {
		t.Errorf("deck name = %q, want job id", fx.segCards.gotDeck)
	}

	if len(fx.notifier.failed) != 0 {
		t.Errorf("unexpected failure notifications: %+v", fx.notifier.failed)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("completion notifications = %d, want 1", len(fx.notifier.completed))
	}
	call := fx.notifier.completed[0]
	if call.jobID != job.ID {
		t.Errorf("notified job id = %q", call.jobID)
	}
	if call.stats.CardsCreated != 4 || call.stats.NewWords != 2 {
		t.Errorf("notified stats = %+v", call.stats)
	}
	if call.stats.ProcessingTime <= 0 {
		t.Errorf("processing time = %v", call.stats.ProcessingTime)
	}
}

func TestRunSubtitleInlineSkipsAcquisitionAndTranscription(t *testing.T) {
	fx := newFixture(t)
	job := newJob(t, fx.store, twoCueSRT, jobs.SourceSubtitle)

	result, err := fx.pipeline.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fx.fetcher.calls != 0 || fx.transcriber.calls != 0 {
		t.Errorf("acquisition ran: fetch=%d transcribe=%d", fx.fetcher.calls, fx.transcriber.calls)
	}
	if fx.archiver.segCalls != 0 {
		t.Errorf("segment archival ran without audio")
	}
	if result.AudioPath != "" {
		t.Errorf("audio path = %q, want empty", result.AudioPath)
	}
	if result.AudioSegmentsCount != 0 {
		t.Errorf("audio segments count = %d, want 0", result.AudioSegmentsCount)
	}
	if result.BlocksCount != 2 {
		t.Errorf("blocks count = %d, want 2", result.BlocksCount)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	if got, ok := decoded["audio_path"]; !ok || got != "" {
		t.Errorf("persisted audio_path = %v, %v", got, ok)
	}
	storeEntry := branchEntry(t, decoded, "store_audio")
	if got := storeEntry["successful_segments"]; got != float64(0) {
		t.Errorf("successful_segments = %v", got)
	}
	if got := storeEntry["blocks_count"]; got != float64(2) {
		t.Errorf("blocks_count = %v", got)
	}
	if got := storeEntry["translation_path"]; got != "transcripts/"+job.ID+"/translation_data.json" {
		t.Errorf("translation_path = %v", got)
	}
	if fx.segCards.gotDeck != job.ID {
		t.Errorf("deck name = %q, want job id", fx.segCards.gotDeck)
	}
}

func TestRunSubtitleFileDerivesDeckFromFileName(t *testing.T) {
	fx := newFixture(t)
	path := filepath.Join(t.TempDir(), "lesson_07.srt")
	if err := os.WriteFile(path, []byte(twoCueSRT), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	job := newJob(t, fx.store, path, jobs.SourceSubtitle)

	if _, err := fx.pipeline.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fx.transcriber.calls != 0 {
		t.Errorf("transcription ran for subtitle file")
	}
	if fx.segCards.gotDeck != "lesson_07" {
		t.Errorf("deck name = %q, want lesson_07", fx.segCards.gotDeck)
	}
}

func TestRunAudioSourceUsesLocalFile(t *testing.T) {
	fx := newFixture(t)
	path := filepath.Join(t.TempDir(), "lesson_01.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	job := newJob(t, fx.store, path, jobs.SourceAudio)

	if _, err := fx.pipeline.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fx.fetcher.calls != 0 {
		t.Errorf("fetcher ran for local audio")
	}
	if fx.transcriber.gotPath != path {
		t.Errorf("transcriber received %q, want %q", fx.transcriber.gotPath, path)
	}
	if fx.archiver.gotAudio != path {
		t.Errorf("archiver received %q, want %q", fx.archiver.gotAudio, path)
	}
	if stored := storedJob(t, fx.store, job.ID); stored.AudioPath != path {
		t.Errorf("stored audio path = %q", stored.AudioPath)
	}
	if fx.segCards.gotDeck != "lesson_01" {
		t.Errorf("deck name = %q, want lesson_01", fx.segCards.gotDeck)
	}
}

func TestRunMissingAudioSourceFailsJob(t *testing.T) {
	fx := newFixture(t)
	job := newJob(t, fx.store, filepath.Join(t.TempDir(), "missing.wav"), jobs.SourceAudio)

	_, err := fx.pipeline.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
	if !strings.Contains(err.Error(), "audio source") {
		t.Errorf("error = %v", err)
	}

	stored := storedJob(t, fx.store, job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Errorf("stored error message is empty")
	}
	if len(fx.notifier.failed) != 1 {
		t.Fatalf("failure notifications = %d, want 1", len(fx.notifier.failed))
	}
	if fx.notifier.failed[0].source != job.Source {
		t.Errorf("notified source = %q", fx.notifier.failed[0].source)
	}
	if len(fx.notifier.completed) != 0 {
		t.Errorf("unexpected completion notification")
	}
}

func TestRunTranscribeFailureFailsJob(t *testing.T) {
	fx := newFixture(t)
	fx.transcriber.err = errors.New("whisper returned 500")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	_, err := fx.pipeline.Run(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), "whisper returned 500") {
		t.Fatalf("error = %v", err)
	}

	if fx.archiver.segCalls != 0 || fx.tokenCards.calls != 0 || fx.segCards.calls != 0 {
		t.Errorf("branches ran after transcription failure")
	}
	stored := storedJob(t, fx.store, job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
	if len(fx.notifier.failed) != 1 || !strings.Contains(fx.notifier.failed[0].message, "whisper returned 500") {
		t.Errorf("failure notifications = %+v", fx.notifier.failed)
	}
}

func TestRunFetchFailureFailsJob(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.err = errors.New("sign in to confirm you're not a bot")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	_, err := fx.pipeline.Run(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), "fetch audio") {
		t.Fatalf("error = %v", err)
	}
	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
}

func TestRunUnparsableSubtitleFailsJob(t *testing.T) {
	fx := newFixture(t)
	job := newJob(t, fx.store, "1\n00:00:03,000 --> 00:00:01,000\nreversed\n", jobs.SourceSubtitle)

	_, err := fx.pipeline.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
	if len(fx.notifier.failed) != 1 {
		t.Errorf("failure notifications = %d, want 1", len(fx.notifier.failed))
	}
}

func TestRunTranslateFailureStillCompletes(t *testing.T) {
	fx := newFixture(t)
	fx.translator.fn = func(string) (string, error) {
		return "", errors.New("model unavailable")
	}
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	result, err := fx.pipeline.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != "success" {
		t.Errorf("result status = %q", result.Status)
	}
	if result.TranslationData.Blocks[0].TranslatedValue != "" {
		t.Errorf("translation applied despite branch failure")
	}

	decoded := persistedResult(t, fx.store, job.ID)
	entry := branchEntry(t, decoded, "translate")
	if msg, _ := entry["error"].(string); !strings.Contains(msg, "model unavailable") {
		t.Errorf("translate entry = %v", entry)
	}
	if len(entry) != 1 {
		t.Errorf("translate entry has extra keys: %v", entry)
	}

	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("completion notifications = %d, want 1", len(fx.notifier.completed))
	}
	if stats := fx.notifier.completed[0].stats; stats.CardsCreated != 4 || stats.NewWords != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunExtractionFailureCapturedPerBranch(t *testing.T) {
	fx := newFixture(t)
	fx.extractor.err = errors.New("mecab exited 1")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	result, err := fx.pipeline.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fx.tokenCards.calls != 0 {
		t.Errorf("card creation ran after extraction failure")
	}
	if result.TotalAtoms != 0 {
		t.Errorf("total atoms = %d, want 0", result.TotalAtoms)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	entry := branchEntry(t, decoded, "extract_and_create_atom_cards")
	msg, _ := entry["error"].(string)
	if !strings.Contains(msg, "extract tokens for segment") || !strings.Contains(msg, "mecab exited 1") {
		t.Errorf("extraction entry = %v", entry)
	}

	segmentEntry := branchEntry(t, decoded, "create_block_cards")
	if got := segmentEntry["created"]; got != float64(2) {
		t.Errorf("segment cards created = %v", got)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("completion notifications = %d, want 1", len(fx.notifier.completed))
	}
	if stats := fx.notifier.completed[0].stats; stats.CardsCreated != 2 || stats.NewWords != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunArchiveFailureStillCompletes(t *testing.T) {
	fx := newFixture(t)
	fx.archiver.segErr = errors.New("ffmpeg missing")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	result, err := fx.pipeline.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AudioSegmentsCount != 0 {
		t.Errorf("audio segments count = %d, want 0", result.AudioSegmentsCount)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	entry := branchEntry(t, decoded, "store_audio")
	if msg, _ := entry["error"].(string); !strings.Contains(msg, "ffmpeg missing") {
		t.Errorf("store_audio entry = %v", entry)
	}
	if len(entry) != 1 {
		t.Errorf("failed branch entry has extra keys: %v", entry)
	}
}

func TestRunSegmentCardFailureEmbedded(t *testing.T) {
	fx := newFixture(t)
	fx.segCards.err = errors.New("mochi request: http 500: boom")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	if _, err := fx.pipeline.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	entry := branchEntry(t, decoded, "create_block_cards")
	if msg, _ := entry["error"].(string); !strings.Contains(msg, "http 500") {
		t.Errorf("segment entry = %v", entry)
	}
	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("completion notifications = %d, want 1", len(fx.notifier.completed))
	}
	if stats := fx.notifier.completed[0].stats; stats.CardsCreated != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunTranscriptStoreFailureTolerated(t *testing.T) {
	fx := newFixture(t)
	fx.archiver.refErr = errors.New("disk full")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	if _, err := fx.pipeline.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	decoded := persistedResult(t, fx.store, job.ID)
	entry := branchEntry(t, decoded, "store_audio")
	if _, ok := entry["translation_path"]; ok {
		t.Errorf("translation_path present despite store failure: %v", entry)
	}
	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestRunNotificationFailureDoesNotFailJob(t *testing.T) {
	fx := newFixture(t)
	fx.notifier.err = errors.New("postmark returned 503")
	job := newJob(t, fx.store, "https://example.com/watch?v=abc", jobs.SourceURL)

	if _, err := fx.pipeline.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stored := storedJob(t, fx.store, job.ID); stored.Status != jobs.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}
