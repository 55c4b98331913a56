package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCaptions(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeMerge()
	c.normalizePacing()
	c.normalizeNarration()
	c.normalizePlayback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DUBSYNC_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCaptions() error {
	var err error
	if dir := strings.TrimSpace(c.Captions.Dir); dir != "" {
		if c.Captions.Dir, err = expandPath(dir); err != nil {
			return fmt.Errorf("captions.dir: %w", err)
		}
	}
	c.Captions.URLTemplate = strings.TrimSpace(c.Captions.URLTemplate)
	c.Captions.Language = strings.ToLower(strings.TrimSpace(c.Captions.Language))
	if c.Captions.Language == "" {
		c.Captions.Language = defaultCaptionLanguage
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	t.SourceLanguage = strings.ToLower(strings.TrimSpace(t.SourceLanguage))
	if t.SourceLanguage == "" {
		t.SourceLanguage = defaultSourceLanguage
	}
	t.TargetLanguage = strings.ToLower(strings.TrimSpace(t.TargetLanguage))
	if t.TargetLanguage == "" {
		t.TargetLanguage = defaultTargetLanguage
	}
	t.StyleHint = strings.TrimSpace(t.StyleHint)
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	if t.BaseURL == "" {
		t.BaseURL = defaultTranslationBaseURL
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultTranslationModel
	}
	if t.Temperature < 0 {
		t.Temperature = defaultTranslationTemp
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTranslationTimeout
	}
	if t.RetryAttempts <= 0 {
		t.RetryAttempts = defaultTranslationAttempts
	}
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.APIKey == "" {
		if value, ok := os.LookupEnv("DUBSYNC_API_KEY"); ok {
			t.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
			t.APIKey = strings.TrimSpace(value)
		}
	}
	t.FallbackURL = strings.TrimSpace(t.FallbackURL)
	if t.FallbackURL == "" {
		if value, ok := os.LookupEnv("DEEPLX_API_URL"); ok {
			t.FallbackURL = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeMerge() {
	if c.Merge.MaxGapSeconds <= 0 {
		c.Merge.MaxGapSeconds = defaultMaxGapSeconds
	}
	if c.Merge.MaxPhraseSeconds <= 0 {
		c.Merge.MaxPhraseSeconds = defaultMaxPhraseSeconds
	}
}

func (c *Config) normalizePacing() {
	if c.Pacing.SecondsPerChar <= 0 {
		c.Pacing.SecondsPerChar = defaultSecondsPerChar
	}
	if c.Pacing.MinRate <= 0 {
		c.Pacing.MinRate = defaultMinRate
	}
	if c.Pacing.MaxRate <= 0 {
		c.Pacing.MaxRate = defaultMaxRate
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.Command = strings.TrimSpace(c.Narration.Command)
	if len(c.Narration.Args) == 0 && c.Narration.Command == defaultNarrationCommand {
		c.Narration.Args = defaultNarrationArgs()
	}
	c.Narration.Voice = strings.TrimSpace(c.Narration.Voice)
	if c.Narration.BaseWPM <= 0 {
		c.Narration.BaseWPM = defaultNarrationBaseWPM
	}
}

func (c *Config) normalizePlayback() {
	if c.Playback.TickIntervalMillis <= 0 {
		c.Playback.TickIntervalMillis = defaultTickIntervalMillis
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
}
