package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dubsync/internal/captions"
	"dubsync/internal/config"
	"dubsync/internal/cues"
	"dubsync/internal/language"
	"dubsync/internal/logging"
	"dubsync/internal/narration"
	"dubsync/internal/pacing"
	"dubsync/internal/playback"
	"dubsync/internal/services"
	"dubsync/internal/store"
	"dubsync/internal/translation"
)

// State is the lifecycle state of the narration session.
type State string

const (
	StateDisabled    State = "disabled"
	StatePreparing   State = "preparing"
	StateReady       State = "ready"
	StateUnavailable State = "unavailable"
)

// TranslatorFactory builds the translators used for one preparation.
type TranslatorFactory func(creds config.Credentials) (primary, secondary translation.Translator)

// Options wires a Manager. Config and Sink are required.
type Options struct {
	Config      *config.Config
	Source      captions.Source
	Sink        narration.Sink
	Display     playback.Display
	Clock       playback.Clock
	Memo        translation.Memo
	Cache       *store.CueCache
	Translators TranslatorFactory
	Logger      *slog.Logger
}

// EnableRequest starts narration for a video.
type EnableRequest struct {
	VideoID      string             `json:"video_id"`
	TargetLocale string             `json:"target_locale"`
	StyleHint    string             `json:"style_hint,omitempty"`
	Credentials  config.Credentials `json:"credentials"`
	// Captions, when present, replace the configured caption source.
	Captions []cues.RawCue `json:"captions,omitempty"`
}

// Status is a snapshot of the session.
type Status struct {
	SessionID    string  `json:"session_id,omitempty"`
	VideoID      string  `json:"video_id,omitempty"`
	TargetLocale string  `json:"target_locale,omitempty"`
	State        State   `json:"state"`
	Progress     float64 `json:"progress"`
	DisplayText  string  `json:"display_text,omitempty"`
	Position     float64 `json:"position"`
	Paused       bool    `json:"paused"`
	CueCount     int     `json:"cue_count"`
	Failures     int     `json:"failures"`
	Fallbacks    int     `json:"fallbacks"`
	MemoHits     int     `json:"memo_hits"`
	Error        string  `json:"error,omitempty"`
}

// Manager owns the narration session for the one video being watched. A
// new Enable replaces the previous session; ticks before the session is
// ready are dropped.
type Manager struct {
	cfg         *config.Config
	source      captions.Source
	sink        narration.Sink
	display     playback.Display
	clock       playback.Clock
	memo        translation.Memo
	cache       *store.CueCache
	translators TranslatorFactory
	merger      cues.Merger
	pacer       pacing.Pacer
	logger      *slog.Logger

	mu        sync.Mutex
	token     uint64
	status    Status
	request   EnableRequest
	scheduler *playback.Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewManager returns a disabled manager.
func NewManager(opts Options) *Manager {
	cache := opts.Cache
	if cache == nil {
		cache = store.NewCueCache()
	}
	translators := opts.Translators
	if translators == nil {
		cfg := opts.Config.Translation
		translators = func(creds config.Credentials) (translation.Translator, translation.Translator) {
			return translation.FromConfig(cfg, creds)
		}
	}
	source := opts.Source
	if source == nil {
		source = captions.FromConfig(opts.Config.Captions)
	}
	return &Manager{
		cfg:         opts.Config,
		source:      source,
		sink:        opts.Sink,
		display:     opts.Display,
		clock:       opts.Clock,
		memo:        opts.Memo,
		cache:       cache,
		translators: translators,
		merger:      cues.MergerFromConfig(opts.Config.Merge),
		pacer:       pacing.FromConfig(opts.Config.Pacing),
		logger:      logging.NewComponentLogger(opts.Logger, "session"),
		status:      Status{State: StateDisabled},
	}
}

// Enable starts preparing narration for req.VideoID in the background.
// Enabling the video and locale that are already active is a no-op.
func (m *Manager) Enable(ctx context.Context, req EnableRequest) error {
	return m.enable(ctx, req, false)
}

// UpdateLocale rebuilds the active video's narration for locale.
func (m *Manager) UpdateLocale(ctx context.Context, locale string, creds config.Credentials) error {
	m.mu.Lock()
	req := m.request
	active := m.status.State != StateDisabled && req.VideoID != ""
	m.mu.Unlock()
	if !active {
		return services.Wrap(services.ErrValidation, "session", "update locale", "no active session", nil)
	}
	req.TargetLocale = locale
	if strings.TrimSpace(creds.APIKey) != "" || strings.TrimSpace(creds.FallbackURL) != "" {
		req.Credentials = creds
	}
	return m.enable(ctx, req, true)
}

func (m *Manager) enable(ctx context.Context, req EnableRequest, force bool) error {
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		return services.Wrap(services.ErrValidation, "session", "enable", "video_id required", nil)
	}
	if strings.TrimSpace(req.TargetLocale) == "" {
		req.TargetLocale = m.cfg.Translation.TargetLanguage
	}
	target := language.Normalize(req.TargetLocale)
	if target == "" {
		return services.Wrap(services.ErrValidation, "session", "enable", "unknown target locale "+req.TargetLocale, nil)
	}
	req.TargetLocale = target
	if strings.TrimSpace(req.StyleHint) == "" {
		req.StyleHint = m.cfg.Translation.StyleHint
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.status
	if !force && current.VideoID == req.VideoID && current.TargetLocale == target &&
		(current.State == StatePreparing || current.State == StateReady) {
		return nil
	}
	m.teardownLocked()

	sessionID := uuid.NewString()
	base := context.WithoutCancel(ctx)
	base = services.WithSessionID(services.WithVideoID(base, req.VideoID), sessionID)
	sessionCtx, cancel := context.WithCancel(base)

	m.request = req
	m.cancel = cancel
	m.done = make(chan struct{})
	m.status = Status{
		SessionID:    sessionID,
		VideoID:      req.VideoID,
		TargetLocale: target,
		State:        StatePreparing,
	}
	if current.VideoID == req.VideoID {
		m.status.Position = current.Position
		m.status.Paused = current.Paused
	}
	logging.WithContext(sessionCtx, m.logger).Info("session enabled",
		logging.String("target_locale", target),
		logging.Bool("captions_supplied", len(req.Captions) > 0),
	)
	go m.prepare(sessionCtx, m.token, req, m.done)
	return nil
}

// Disable stops narration and drops every cached cue list.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State != StateDisabled {
		m.logger.Info("session disabled", logging.String(logging.FieldSessionID, m.status.SessionID))
	}
	m.teardownLocked()
	m.cache.Clear()
	m.request = EnableRequest{}
	m.status = Status{State: StateDisabled}
}

// Wait blocks until the current preparation finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context) (Status, error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.Status(), ctx.Err()
		}
	}
	return m.Status(), nil
}

// Tick forwards a playback position to the scheduler.
func (m *Manager) Tick(position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Position = position
	if m.scheduler != nil && !m.status.Paused {
		m.scheduler.OnClockTick(position)
	}
}

// Pause silences narration until Resume.
func (m *Manager) Pause(position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Position = position
	m.status.Paused = true
	if m.scheduler != nil {
		m.scheduler.Pause(position)
	}
}

// Resume restarts narration at position.
func (m *Manager) Resume(position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Position = position
	m.status.Paused = false
	if m.scheduler != nil {
		m.scheduler.Resume(position)
	}
}

// Status returns a snapshot of the session.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := m.status
	if m.scheduler != nil {
		snap := m.scheduler.Snapshot()
		status.DisplayText = snap.DisplayText
	}
	return status
}

// Cues returns the narrated cues of the ready session.
func (m *Manager) Cues() []cues.NarratedCue {
	m.mu.Lock()
	videoID := m.status.VideoID
	ready := m.status.State == StateReady
	m.mu.Unlock()
	if !ready {
		return nil
	}
	list, _ := m.cache.Get(videoID)
	return list
}

// teardownLocked stops the running session and invalidates any preparation
// still in flight.
func (m *Manager) teardownLocked() {
	m.token++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.scheduler != nil {
		m.scheduler.Stop()
		m.scheduler = nil
	}
	if m.status.VideoID != "" {
		m.cache.Evict(m.status.VideoID)
	}
}

func (m *Manager) prepare(ctx context.Context, token uint64, req EnableRequest, done chan struct{}) {
	defer close(done)
	logger := logging.WithContext(ctx, m.logger)

	var source captions.Source = m.source
	if len(req.Captions) > 0 {
		source = captions.StaticSource(req.Captions)
	}
	raw, err := source.Fetch(ctx, req.VideoID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(logger, "captions unavailable", "captions_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check captions.dir or captions.url_template"),
			logging.String(logging.FieldImpact, "video plays without narration"),
		)
		m.finish(token, func(s *Status) {
			s.State = StateUnavailable
			s.Error = err.Error()
		})
		return
	}
	merged := m.merger.Merge(raw)
	logger.Info("captions merged", logging.Int("raw", len(raw)), logging.Int("merged", len(merged)))

	primary, secondary := m.translators(m.cfg.MergeCredentials(req.Credentials))
	pipeline := translation.NewPipeline(translation.Options{
		Primary:      primary,
		Secondary:    secondary,
		Memo:         m.memo,
		Pacer:        m.pacer,
		SourceLocale: m.cfg.Translation.SourceLanguage,
		TargetLocale: req.TargetLocale,
		StyleHint:    req.StyleHint,
		Voice:        m.cfg.Narration.Voice,
		Logger:       m.logger,
	})
	result, err := pipeline.TranslateAll(ctx, merged, func(fraction float64) {
		m.finish(token, func(s *Status) { s.Progress = fraction })
	})
	if err != nil {
		logger.Info("preparation cancelled", logging.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return
	}
	m.cache.Put(req.VideoID, result.Cues)
	m.scheduler = playback.NewScheduler(ctx, result.Cues, playback.Options{
		Sink:            m.sink,
		Display:         m.display,
		Clock:           m.clock,
		Pacer:           m.pacer,
		StrictLookahead: m.cfg.Playback.StrictLookahead,
		Logger:          m.logger,
	})
	if m.status.Paused {
		m.scheduler.Pause(m.status.Position)
	}
	m.status.State = StateReady
	m.status.Progress = 1
	m.status.CueCount = len(result.Cues)
	m.status.Failures = len(result.Failures)
	m.status.Fallbacks = result.Fallbacks
	m.status.MemoHits = result.MemoHits
	summary := []logging.Attr{
		logging.Int("cues", len(result.Cues)),
		logging.Int("fallbacks", result.Fallbacks),
		logging.Int("failures", len(result.Failures)),
		logging.Int("memo_hits", result.MemoHits),
	}
	if alert := readyAlert(result); alert != "" {
		summary = append(summary, logging.Alert(alert))
	}
	logger.Info("session ready", logging.Args(summary...)...)
	if len(result.Failures) > 0 {
		logging.WarnWithContext(logger, "some cues narrate untranslated text", "translation_unrecoverable",
			logging.Alert(alertUntranslated),
			logging.Int("failures", len(result.Failures)),
			logging.Error(errors.Join(failureErrors(result.Failures)...)),
			logging.String(logging.FieldImpact, "affected cues are spoken in the source language"),
		)
	}
}

const (
	alertUntranslated = "untranslated"
	alertFallback     = "translation_fallback"
)

// readyAlert flags a prepared session whose cues did not all come from the
// primary translator or the memo.
func readyAlert(result translation.Result) string {
	switch {
	case len(result.Failures) > 0:
		return alertUntranslated
	case result.Fallbacks > 0:
		return alertFallback
	default:
		return ""
	}
}

// finish applies update when token is still current.
func (m *Manager) finish(token uint64, update func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return
	}
	update(&m.status)
}

func failureErrors(failures []translation.Failure) []error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	return errs
}
