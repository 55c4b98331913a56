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

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`

	// AllowedOrigins lists the CORS origins of the control API; empty allows any.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Captions contains configuration for locating raw caption tracks.
type Captions struct {
	// Dir holds <video_id>.xml or <video_id>.json3 caption files.
	Dir string `toml:"dir"`
	// URLTemplate fetches captions over HTTP; {video_id} and {lang} are substituted.
	URLTemplate string `toml:"url_template"`
	Language    string `toml:"language"`
}

// Translation contains primary (chat completion) and fallback (DeepLX) settings.
type Translation struct {
	SourceLanguage string  `toml:"source_language"`
	TargetLanguage string  `toml:"target_language"`
	StyleHint      string  `toml:"style_hint"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
	FallbackURL    string  `toml:"fallback_url"`
	MemoEnabled    bool    `toml:"memo_enabled"`
}

// Merge contains the cue merging thresholds.
type Merge struct {
	MaxGapSeconds    float64 `toml:"max_gap_seconds"`
	MaxPhraseSeconds float64 `toml:"max_phrase_seconds"`
}

// Pacing contains the narration rate heuristics.
type Pacing struct {
	SecondsPerChar float64 `toml:"seconds_per_char"`
	MinRate        float64 `toml:"min_rate"`
	MaxRate        float64 `toml:"max_rate"`
}

// Narration contains the external speech engine invocation.
type Narration struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Voice   string   `toml:"voice"`
	BaseWPM int      `toml:"base_wpm"`
}

// Playback contains clock and look-ahead settings.
type Playback struct {
	TickIntervalMillis int `toml:"tick_interval_ms"`
	// StrictLookahead skips a next cue that starts exactly where the current one ends.
	StrictLookahead bool `toml:"strict_lookahead"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dubsync.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and control API bind address
//   - Captions: where raw caption tracks are read from
//   - Translation: primary LLM and DeepLX fallback credentials
//   - Merge: cue merging thresholds
//   - Pacing: narration rate heuristics
//   - Narration: speech engine command
//   - Playback: clock cadence and look-ahead behaviour
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Captions    Captions    `toml:"captions"`
	Translation Translation `toml:"translation"`
	Merge       Merge       `toml:"merge"`
	Pacing      Pacing      `toml:"pacing"`
	Narration   Narration   `toml:"narration"`
	Playback    Playback    `toml:"playback"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubsync/config.toml")
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubsync.toml")
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

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MemoPath returns the SQLite translation memo location.
func (c *Config) MemoPath() string {
	return filepath.Join(c.Paths.DataDir, "memo.db")
}

// LockPath returns the narrator lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "narrator.lock")
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

// Credentials carries the per-session secrets supplied by the control surface.
type Credentials struct {
	APIKey      string `json:"api_key"`
	FallbackURL string `json:"fallback_url"`
}

// MergeCredentials returns the configured credentials overridden by any
// non-empty values in override.
func (c *Config) MergeCredentials(override Credentials) Credentials {
	creds := Credentials{
		APIKey:      strings.TrimSpace(c.Translation.APIKey),
		FallbackURL: strings.TrimSpace(c.Translation.FallbackURL),
	}
	if key := strings.TrimSpace(override.APIKey); key != "" {
		creds.APIKey = key
	}
	if url := strings.TrimSpace(override.FallbackURL); url != "" {
		creds.FallbackURL = url
	}
	return creds
}
