package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/regexyl/instantcards/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeTranscriber()
	c.normalizeTranslator()
	if err := c.normalizeTokenizer(); err != nil {
		return err
	}
	c.normalizeCards()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.BaseURL = strings.TrimSpace(c.Transcriber.BaseURL)
	if c.Transcriber.BaseURL == "" {
		c.Transcriber.BaseURL = defaultTranscriberBaseURL
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	// "Japanese" and "jpn" become "ja"; unrecognized values fall back to
	// autodetect rather than reaching the API as-is.
	c.Transcriber.Language = language.Code(c.Transcriber.Language)
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscriberTimeout
	}
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	if c.Transcriber.APIKey == "" {
		if value := strings.TrimSpace(os.Getenv("TRANSCRIBER_API_KEY")); value != "" {
			c.Transcriber.APIKey = value
		} else if value := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); value != "" {
			c.Transcriber.APIKey = value
		}
	}
}

func (c *Config) normalizeTranslator() {
	c.Translator.BaseURL = strings.TrimSpace(c.Translator.BaseURL)
	if c.Translator.BaseURL == "" {
		c.Translator.BaseURL = defaultTranslatorBaseURL
	}
	c.Translator.Model = strings.TrimSpace(c.Translator.Model)
	if c.Translator.Model == "" {
		c.Translator.Model = defaultTranslatorModel
	}
	// Prompts spell the language out, so "en" becomes "English".
	c.Translator.TargetLanguage = language.Display(c.Translator.TargetLanguage)
	if c.Translator.TargetLanguage == "" {
		c.Translator.TargetLanguage = defaultTranslatorTargetLanguage
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = defaultTranslatorTimeout
	}
	c.Translator.APIKey = strings.TrimSpace(c.Translator.APIKey)
	if c.Translator.APIKey == "" {
		if value := strings.TrimSpace(os.Getenv("TRANSLATOR_API_KEY")); value != "" {
			c.Translator.APIKey = value
		} else if value := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); value != "" {
			c.Translator.APIKey = value
		}
	}
}

func (c *Config) normalizeTokenizer() error {
	c.Tokenizer.Binary = strings.TrimSpace(c.Tokenizer.Binary)
	if c.Tokenizer.Binary == "" {
		c.Tokenizer.Binary = defaultTokenizerBinary
	}
	if strings.TrimSpace(c.Tokenizer.DictionaryDir) != "" {
		expanded, err := expandPath(c.Tokenizer.DictionaryDir)
		if err != nil {
			return fmt.Errorf("tokenizer.dictionary_dir: %w", err)
		}
		c.Tokenizer.DictionaryDir = expanded
	} else {
		c.Tokenizer.DictionaryDir = ""
	}
	if c.Tokenizer.TimeoutSeconds <= 0 {
		c.Tokenizer.TimeoutSeconds = defaultTokenizerTimeout
	}
	return nil
}

func (c *Config) normalizeCards() {
	c.Cards.BaseURL = strings.TrimSpace(c.Cards.BaseURL)
	if c.Cards.BaseURL == "" {
		c.Cards.BaseURL = defaultCardsBaseURL
	}
	c.Cards.VocabDeckID = strings.TrimSpace(c.Cards.VocabDeckID)
	c.Cards.VocabTemplateID = strings.TrimSpace(c.Cards.VocabTemplateID)
	c.Cards.VocabFieldID = strings.TrimSpace(c.Cards.VocabFieldID)
	c.Cards.DeckParentID = strings.TrimSpace(c.Cards.DeckParentID)
	c.Cards.SegmentTemplateID = strings.TrimSpace(c.Cards.SegmentTemplateID)
	c.Cards.SegmentAudioFieldID = strings.TrimSpace(c.Cards.SegmentAudioFieldID)
	c.Cards.SegmentTranslationFieldID = strings.TrimSpace(c.Cards.SegmentTranslationFieldID)
	c.Cards.SegmentBacklinksFieldID = strings.TrimSpace(c.Cards.SegmentBacklinksFieldID)
	if c.Cards.TimeoutSeconds <= 0 {
		c.Cards.TimeoutSeconds = defaultCardsTimeout
	}
	c.Cards.APIKey = strings.TrimSpace(c.Cards.APIKey)
	if c.Cards.APIKey == "" {
		if value := strings.TrimSpace(os.Getenv("MOCHI_API_KEY")); value != "" {
			c.Cards.APIKey = value
		}
	}
	if c.Cards.VocabDeckID == "" {
		if value := strings.TrimSpace(os.Getenv("MOCHI_VOCAB_DECK_ID")); value != "" {
			c.Cards.VocabDeckID = value
		}
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		c.Storage.Root = defaultStorageRoot
	}
	var err error
	if c.Storage.Root, err = expandPath(c.Storage.Root); err != nil {
		return fmt.Errorf("storage.root: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.BaseURL = strings.TrimSpace(c.Notifications.BaseURL)
	if c.Notifications.BaseURL == "" {
		c.Notifications.BaseURL = defaultNotifyBaseURL
	}
	c.Notifications.FromEmail = strings.TrimSpace(c.Notifications.FromEmail)
	c.Notifications.ToEmail = strings.TrimSpace(c.Notifications.ToEmail)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.Notifications.ServerToken = strings.TrimSpace(c.Notifications.ServerToken)
	if c.Notifications.ServerToken == "" {
		if value := strings.TrimSpace(os.Getenv("POSTMARK_SERVER_TOKEN")); value != "" {
			c.Notifications.ServerToken = value
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
