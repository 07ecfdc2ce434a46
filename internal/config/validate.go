package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateTranslator(); err != nil {
		return err
	}
	if err := c.validateTokenizer(); err != nil {
		return err
	}
	if err := c.validateCards(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.Bind) == "" {
		return errors.New("api.bind must be set")
	}
	return nil
}

// API key is not required here; jobs that start from SRT text never contact
// the transcriber, so the key is checked at call time instead.
func (c *Config) validateTranscriber() error {
	if strings.TrimSpace(c.Transcriber.BaseURL) == "" {
		return errors.New("transcriber.base_url must be set")
	}
	if strings.TrimSpace(c.Transcriber.Model) == "" {
		return errors.New("transcriber.model must be set")
	}
	return nil
}

func (c *Config) validateTranslator() error {
	if c.Translator.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/instantcards/config.toml"
		}
		return fmt.Errorf("translator.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'instantcards config init')", defaultPath)
	}
	if strings.TrimSpace(c.Translator.Model) == "" {
		return errors.New("translator.model must be set")
	}
	return nil
}

func (c *Config) validateTokenizer() error {
	if strings.TrimSpace(c.Tokenizer.Binary) == "" {
		return errors.New("tokenizer.binary must be set")
	}
	return nil
}

func (c *Config) validateCards() error {
	if c.Cards.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/instantcards/config.toml"
		}
		return fmt.Errorf("cards.api_key is required. Set MOCHI_API_KEY env var or edit %s (create with 'instantcards config init')", defaultPath)
	}
	if c.Cards.VocabDeckID == "" {
		return errors.New("cards.vocab_deck_id must be set")
	}
	hasTemplate := c.Cards.VocabTemplateID != ""
	hasField := c.Cards.VocabFieldID != ""
	if hasTemplate != hasField {
		return errors.New("cards.vocab_template_id and cards.vocab_field_id must be set together")
	}
	if c.Cards.SegmentTemplateID != "" {
		if c.Cards.SegmentAudioFieldID == "" || c.Cards.SegmentTranslationFieldID == "" || c.Cards.SegmentBacklinksFieldID == "" {
			return errors.New("cards.segment_template_id requires segment_audio_field_id, segment_translation_field_id, and segment_backlinks_field_id")
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Backend != "local" {
		return fmt.Errorf("storage.backend %q is not supported (only \"local\")", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return errors.New("storage.root must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"transcriber.timeout_seconds":   c.Transcriber.TimeoutSeconds,
		"translator.timeout_seconds":    c.Translator.TimeoutSeconds,
		"tokenizer.timeout_seconds":     c.Tokenizer.TimeoutSeconds,
		"cards.timeout_seconds":         c.Cards.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.ServerToken == "" {
		return nil
	}
	if c.Notifications.FromEmail == "" {
		return errors.New("notifications.from_email must be set when notifications.server_token is set")
	}
	if c.Notifications.ToEmail == "" {
		return errors.New("notifications.to_email must be set when notifications.server_token is set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
