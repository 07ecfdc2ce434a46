package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working and log directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains configuration for the daemon control API.
type API struct {
	Bind string `toml:"bind"`
}

// Transcriber contains configuration for the speech-to-text service.
type Transcriber struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translator contains configuration for the chat-completions translation
// service.
type Translator struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TargetLanguage string `toml:"target_language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Tokenizer contains configuration for the morphological analyzer.
type Tokenizer struct {
	Binary         string `toml:"binary"`
	DictionaryDir  string `toml:"dictionary_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Cards contains configuration for the remote flashcard service.
type Cards struct {
	BaseURL                   string `toml:"base_url"`
	APIKey                    string `toml:"api_key"`
	VocabDeckID               string `toml:"vocab_deck_id"`
	VocabTemplateID           string `toml:"vocab_template_id"`
	VocabFieldID              string `toml:"vocab_field_id"`
	DeckParentID              string `toml:"deck_parent_id"`
	SegmentTemplateID         string `toml:"segment_template_id"`
	SegmentAudioFieldID       string `toml:"segment_audio_field_id"`
	SegmentTranslationFieldID string `toml:"segment_translation_field_id"`
	SegmentBacklinksFieldID   string `toml:"segment_backlinks_field_id"`
	TimeoutSeconds            int    `toml:"timeout_seconds"`
}

// Storage contains configuration for the archival blob store.
type Storage struct {
	Backend string `toml:"backend"`
	Root    string `toml:"root"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Notifications contains configuration for Postmark email delivery.
type Notifications struct {
	ServerToken    string `toml:"server_token"`
	FromEmail      string `toml:"from_email"`
	ToEmail        string `toml:"to_email"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for instantcards.
//
// Configuration sections by subsystem:
//   - Paths: working and log directories
//   - API: daemon control API bind address
//   - Transcriber: Whisper-style speech-to-text service
//   - Translator: chat-completions translation service
//   - Tokenizer: MeCab morphological analyzer
//   - Cards: Mochi-style flashcard API and deck bindings
//   - Storage: archival blob store backend
//   - Workflow: daemon polling intervals
//   - Notifications: Postmark email settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Transcriber   Transcriber   `toml:"transcriber"`
	Translator    Translator    `toml:"translator"`
	Tokenizer     Tokenizer     `toml:"tokenizer"`
	Cards         Cards         `toml:"cards"`
	Storage       Storage       `toml:"storage"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/instantcards/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/instantcards/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("instantcards.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == "local" && strings.TrimSpace(c.Storage.Root) != "" {
		if err := os.MkdirAll(c.Storage.Root, 0o755); err != nil {
			return fmt.Errorf("create storage root %q: %w", c.Storage.Root, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for clip trimming.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// NotificationsEnabled reports whether email notifications are configured.
func (c *Config) NotificationsEnabled() bool {
	return strings.TrimSpace(c.Notifications.ServerToken) != "" &&
		strings.TrimSpace(c.Notifications.FromEmail) != "" &&
		strings.TrimSpace(c.Notifications.ToEmail) != ""
}
