package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"playback.tick_interval_ms":   c.Playback.TickIntervalMillis,
		"translation.timeout_seconds": c.Translation.TimeoutSeconds,
		"translation.retry_attempts":  c.Translation.RetryAttempts,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.SourceLanguage == c.Translation.TargetLanguage {
		return fmt.Errorf("translation.target_language must differ from translation.source_language (%q)", c.Translation.SourceLanguage)
	}
	if c.Translation.Temperature > 2 {
		return errors.New("translation.temperature must be between 0 and 2")
	}
	for key, raw := range map[string]string{
		"translation.base_url":     c.Translation.BaseURL,
		"translation.fallback_url": c.Translation.FallbackURL,
	} {
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.MaxGapSeconds >= c.Merge.MaxPhraseSeconds {
		return errors.New("merge.max_gap_seconds must be smaller than merge.max_phrase_seconds")
	}
	return nil
}

func (c *Config) validatePacing() error {
	if c.Pacing.MinRate > c.Pacing.MaxRate {
		return errors.New("pacing.min_rate must not exceed pacing.max_rate")
	}
	return nil
}

func (c *Config) validateNarration() error {
	if c.Narration.Command == "" {
		return nil
	}
	for _, arg := range c.Narration.Args {
		if strings.Contains(arg, "{text}") {
			return nil
		}
	}
	return errors.New("narration.args must include a {text} placeholder when narration.command is set")
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
