package config

const (
	defaultDataDir             = "~/.local/share/dubsync"
	defaultLogDir              = "~/.local/share/dubsync/logs"
	defaultAPIBind             = "127.0.0.1:7488"
	defaultCaptionLanguage     = "en"
	defaultSourceLanguage      = "en"
	defaultTargetLanguage      = "zh"
	defaultTranslationBaseURL  = "https://api.deepseek.com/v1/chat/completions"
	defaultTranslationModel    = "deepseek-chat"
	defaultTranslationTemp     = 0.3
	defaultTranslationTimeout  = 30
	defaultTranslationAttempts = 3
	defaultMaxGapSeconds       = 0.2
	defaultMaxPhraseSeconds    = 4.0
	defaultSecondsPerChar      = 0.3
	defaultMinRate             = 0.8
	defaultMaxRate             = 2.0
	defaultNarrationCommand    = "espeak-ng"
	defaultNarrationBaseWPM    = 175
	defaultTickIntervalMillis  = 250
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultNarrationArgs() []string {
	return []string{"-v", "{voice}", "-s", "{wpm}", "-p", "{pitch}", "-a", "{amplitude}", "{text}"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Captions: Captions{
			Language: defaultCaptionLanguage,
		},
		Translation: Translation{
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			BaseURL:        defaultTranslationBaseURL,
			Model:          defaultTranslationModel,
			Temperature:    defaultTranslationTemp,
			TimeoutSeconds: defaultTranslationTimeout,
			RetryAttempts:  defaultTranslationAttempts,
			MemoEnabled:    true,
		},
		Merge: Merge{
			MaxGapSeconds:    defaultMaxGapSeconds,
			MaxPhraseSeconds: defaultMaxPhraseSeconds,
		},
		Pacing: Pacing{
			SecondsPerChar: defaultSecondsPerChar,
			MinRate:        defaultMinRate,
			MaxRate:        defaultMaxRate,
		},
		Narration: Narration{
			Command: defaultNarrationCommand,
			Args:    defaultNarrationArgs(),
			BaseWPM: defaultNarrationBaseWPM,
		},
		Playback: Playback{
			TickIntervalMillis: defaultTickIntervalMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
