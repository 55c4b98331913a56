package translation

import (
	"strings"

	"dubsync/internal/config"
	"dubsync/internal/services/deeplx"
	"dubsync/internal/services/llm"
)

// FromConfig builds the primary and secondary translators for creds. A
// translator whose credential is missing is nil.
func FromConfig(cfg config.Translation, creds config.Credentials) (primary, secondary Translator) {
	if key := strings.TrimSpace(creds.APIKey); key != "" {
		client := llm.NewClient(llm.Config{
			APIKey:         key,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(cfg.RetryAttempts))
		primary = NewLLMTranslator(client)
	}
	if endpoint := strings.TrimSpace(creds.FallbackURL); endpoint != "" {
		secondary = NewDeepLXTranslator(deeplx.NewClient(endpoint, cfg.TimeoutSeconds))
	}
	return primary, secondary
}
