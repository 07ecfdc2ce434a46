package config

const (
	defaultWorkDir                  = "~/.local/share/instantcards/work"
	defaultLogDir                   = "~/.local/share/instantcards/logs"
	defaultStorageRoot              = "~/.local/share/instantcards/storage"
	defaultLogRetentionDays         = 60
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultAPIBind                  = "127.0.0.1:7590"
	defaultTranscriberBaseURL       = "https://api.openai.com/v1"
	defaultTranscriberModel         = "whisper-1"
	defaultTranscriberLanguage      = "ja"
	defaultTranscriberTimeout       = 300
	defaultTranslatorBaseURL        = "https://api.openai.com/v1"
	defaultTranslatorModel          = "gpt-4o-mini"
	defaultTranslatorTargetLanguage = "English"
	defaultTranslatorTimeout        = 120
	defaultTokenizerBinary          = "mecab"
	defaultTokenizerTimeout         = 30
	defaultCardsBaseURL             = "https://app.mochi.cards/api"
	defaultCardsTimeout             = 30
	defaultStorageBackend           = "local"
	defaultNotifyBaseURL            = "https://api.postmarkapp.com"
	defaultNotifyRequestTimeout     = 10
	defaultPollInterval             = 5
	defaultErrorRetryInterval       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			Language:       defaultTranscriberLanguage,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		Translator: Translator{
			BaseURL:        defaultTranslatorBaseURL,
			Model:          defaultTranslatorModel,
			TargetLanguage: defaultTranslatorTargetLanguage,
			TimeoutSeconds: defaultTranslatorTimeout,
		},
		Tokenizer: Tokenizer{
			Binary:         defaultTokenizerBinary,
			TimeoutSeconds: defaultTokenizerTimeout,
		},
		Cards: Cards{
			BaseURL:        defaultCardsBaseURL,
			TimeoutSeconds: defaultCardsTimeout,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
			Root:    defaultStorageRoot,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			BaseURL:        defaultNotifyBaseURL,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
