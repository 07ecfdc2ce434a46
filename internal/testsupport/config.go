package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/regexyl/instantcards/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config seeded with unique temp directories per
// test. Credentials are filled with placeholder values so Validate passes;
// tests that exercise a real client override the relevant endpoint.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Root = filepath.Join(base, "storage")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Translator.APIKey = "test-translator-key"
	cfgVal.Transcriber.APIKey = "test-transcriber-key"
	cfgVal.Cards.APIKey = "test-cards-key"
	cfgVal.Cards.VocabDeckID = "deck-vocab"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCardsEndpoint points the cards client at a test server.
func WithCardsEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cards.BaseURL = baseURL
	}
}

// WithTranslatorEndpoint points the translator client at a test server.
func WithTranslatorEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translator.BaseURL = baseURL
	}
}

// WithTranscriberEndpoint points the transcriber client at a test server.
func WithTranscriberEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcriber.BaseURL = baseURL
	}
}

// WithSegmentTemplate fills the segment card template bindings.
func WithSegmentTemplate(templateID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cards.SegmentTemplateID = templateID
		b.cfg.Cards.SegmentAudioFieldID = "fld-audio"
		b.cfg.Cards.SegmentTranslationFieldID = "fld-translation"
		b.cfg.Cards.SegmentBacklinksFieldID = "fld-backlinks"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
