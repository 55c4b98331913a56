package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dubsync/internal/cues"
	"dubsync/internal/language"
	"dubsync/internal/logging"
	"dubsync/internal/narration"
	"dubsync/internal/pacing"
)

// MemoKey identifies a memoised translation.
type MemoKey struct {
	SourceLocale string
	TargetLocale string
	Text         string
}

// Memo stores translations across runs. Lookup misses return ok=false.
type Memo interface {
	Lookup(ctx context.Context, key MemoKey) (text string, ok bool, err error)
	Save(ctx context.Context, key MemoKey, text, engine string) error
}

// Options configures a Pipeline. Primary and Secondary may be nil.
type Options struct {
	Primary      Translator
	Secondary    Translator
	Memo         Memo
	Pacer        pacing.Pacer
	SourceLocale string
	TargetLocale string
	StyleHint    string
	// Voice is copied into every narration request.
	Voice  string
	Logger *slog.Logger
}

// Failure records a cue narrated in its original text.
type Failure struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Err   error  `json:"-"`
}

// Result is the outcome of TranslateAll.
type Result struct {
	Cues      []cues.NarratedCue
	Failures  []Failure
	Fallbacks int
	MemoHits  int
}

// Pipeline converts merged cues into narrated cues one at a time.
type Pipeline struct {
	opts      Options
	voiceLang string
	logger    *slog.Logger
}

// NewPipeline builds a pipeline from opts.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		opts:      opts,
		voiceLang: language.VoiceLocale(opts.TargetLocale),
		logger:    logging.NewComponentLogger(opts.Logger, "translation"),
	}
}

// TranslateAll translates merged in order, reporting min((i+1)/n, 1) after
// every cue. A cue whose translators both fail keeps its original text and is
// listed in Result.Failures; the batch continues. Only cancellation of ctx
// stops the batch early, in which case the partial result is returned with
// ctx's error.
func (p *Pipeline) TranslateAll(ctx context.Context, merged []cues.Cue, progress func(float64)) (Result, error) {
	result := Result{Cues: make([]cues.NarratedCue, 0, len(merged))}
	total := len(merged)
	sampler := logging.NewProgressSampler(0.1)
	logger := logging.WithContext(ctx, p.logger)
	if total == 0 && progress != nil {
		progress(1)
	}

	for i, cue := range merged {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		text, res, err := p.translateOne(ctx, logger, i, cue.Text)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		switch res {
		case outcomeMemo:
			result.MemoHits++
		case outcomeSecondary:
			result.Fallbacks++
		case outcomePassthrough:
			result.Failures = append(result.Failures, Failure{Index: i, Text: cue.Text, Err: err})
		}
		result.Cues = append(result.Cues, p.narrate(cue, text, res == outcomePassthrough))

		fraction := min(float64(i+1)/float64(total), 1.0)
		if progress != nil {
			progress(fraction)
		}
		if sampler.ShouldLog(fraction, "translate") {
			logger.Info("translation progress",
				logging.Int("done", i+1),
				logging.Int("total", total),
				logging.Int("fallbacks", result.Fallbacks),
				logging.Int("failures", len(result.Failures)),
			)
		}
	}
	return result, nil
}

type outcome int

const (
	outcomePrimary outcome = iota
	outcomeMemo
	outcomeSecondary
	outcomePassthrough
)

func (p *Pipeline) translateOne(ctx context.Context, logger *slog.Logger, index int, text string) (string, outcome, error) {
	req := TextRequest{
		Text:         text,
		SourceLocale: p.opts.SourceLocale,
		TargetLocale: p.opts.TargetLocale,
		StyleHint:    p.opts.StyleHint,
	}
	key := MemoKey{SourceLocale: req.SourceLocale, TargetLocale: req.TargetLocale, Text: text}
	if strings.TrimSpace(text) == "" {
		return text, outcomePassthrough, fmt.Errorf("%w: empty source text", ErrUnrecoverable)
	}

	if p.opts.Memo != nil {
		cached, ok, err := p.opts.Memo.Lookup(ctx, key)
		if err != nil {
			logging.WarnWithContext(logger, "translation memo lookup failed", "memo_lookup_failed",
				logging.CueIndex(index),
				logging.Error(err),
				logging.String(logging.FieldImpact, "cue translated without memo"),
			)
		} else if ok {
			return cached, outcomeMemo, nil
		}
	}

	var primaryErr error
	if p.opts.Primary != nil {
		out, err := translate(ctx, p.opts.Primary, req)
		if err == nil {
			p.remember(ctx, logger, key, out, p.opts.Primary.Name())
			return out, outcomePrimary, nil
		}
		primaryErr = fmt.Errorf("%w: %s: %w", ErrTranslationFailure, p.opts.Primary.Name(), err)
		if ctx.Err() != nil {
			return text, outcomePassthrough, primaryErr
		}
		logging.WarnWithContext(logger, "primary translation failed", "translation_failure",
			logging.CueIndex(index),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check translation.api_key and the chat endpoint"),
			logging.String(logging.FieldImpact, "cue falls back to the secondary translator"),
		)
	}

	if p.opts.Secondary != nil {
		out, err := translate(ctx, p.opts.Secondary, req)
		if err == nil {
			if primaryErr != nil {
				logger.Debug("translation fallback used",
					logging.Args(append(logging.DecisionAttrs("translation_engine", p.opts.Secondary.Name(), "primary failed"),
						logging.CueIndex(index))...)...)
			}
			p.remember(ctx, logger, key, out, p.opts.Secondary.Name())
			return out, outcomeSecondary, nil
		}
		primaryErr = errors.Join(primaryErr, fmt.Errorf("%s: %w", p.opts.Secondary.Name(), err))
	}

	if primaryErr == nil {
		primaryErr = errors.New("no translator configured")
	}
	unrecoverable := fmt.Errorf("%w: %w", ErrUnrecoverable, primaryErr)
	if ctx.Err() == nil {
		logging.WarnWithContext(logger, "translation unrecoverable, narrating original text", "translation_unrecoverable",
			logging.CueIndex(index),
			logging.Error(unrecoverable),
			logging.String(logging.FieldErrorHint, "check translation.fallback_url"),
			logging.String(logging.FieldImpact, "cue narrated in the source language"),
		)
	}
	return text, outcomePassthrough, unrecoverable
}

func translate(ctx context.Context, t Translator, req TextRequest) (string, error) {
	out, err := t.Translate(ctx, req)
	if err != nil {
		return "", err
	}
	if out = strings.TrimSpace(out); out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}

func (p *Pipeline) remember(ctx context.Context, logger *slog.Logger, key MemoKey, text, engine string) {
	if p.opts.Memo == nil {
		return
	}
	if err := p.opts.Memo.Save(ctx, key, text, engine); err != nil {
		logger.Debug("translation memo save failed", logging.Error(err))
	}
}

// narrate prepares the narration request. Passthrough text is voiced in the
// source language.
func (p *Pipeline) narrate(cue cues.Cue, translated string, passthrough bool) cues.NarratedCue {
	translated = strings.TrimSpace(translated)
	rate := p.opts.Pacer.EstimateRate(translated, cue.Duration)
	lang, voice := p.voiceLang, p.opts.Voice
	if passthrough {
		if source := language.VoiceLocale(p.opts.SourceLocale); source != "" {
			lang, voice = source, ""
		}
	}
	return cues.NarratedCue{
		Cue:            cue,
		TranslatedText: translated,
		BaseRate:       rate,
		Request: narration.Request{
			Text:   translated,
			Lang:   lang,
			Voice:  voice,
			Rate:   rate,
			Pitch:  1,
			Volume: 1,
		},
	}
}
