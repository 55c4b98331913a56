// Package pacing converts translated text and a time budget into a narration
// rate multiplier.
package pacing

import (
	"math"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"dubsync/internal/config"
)

const (
	DefaultSecondsPerChar = 0.3
	DefaultMinRate        = 0.8
	DefaultMaxRate        = 2.0
)

// Pacer holds the per-character speech heuristic and the rate bounds.
// The zero value uses the defaults.
type Pacer struct {
	SecondsPerChar float64
	MinRate        float64
	MaxRate        float64
}

// Default returns a Pacer with the default constants.
func Default() Pacer {
	return Pacer{SecondsPerChar: DefaultSecondsPerChar, MinRate: DefaultMinRate, MaxRate: DefaultMaxRate}
}

// FromConfig returns a Pacer using the configured constants.
func FromConfig(cfg config.Pacing) Pacer {
	return Pacer{SecondsPerChar: cfg.SecondsPerChar, MinRate: cfg.MinRate, MaxRate: cfg.MaxRate}.withDefaults()
}

// TextLength counts the characters of text after NFC normalization, so a
// decomposed accent counts once.
func TextLength(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(text))
}

// EstimatedDuration is the expected speech time for text at rate 1.
func (p Pacer) EstimatedDuration(text string) float64 {
	p = p.withDefaults()
	return float64(TextLength(text)) * p.SecondsPerChar
}

// EstimateRate returns the rate at which text fits into available seconds,
// clamped to [MinRate, MaxRate]. A non-positive window yields MaxRate for
// non-empty text and MinRate for empty text.
func (p Pacer) EstimateRate(text string, available float64) float64 {
	p = p.withDefaults()
	estimated := p.EstimatedDuration(text)
	if available <= 0 || math.IsNaN(available) {
		if estimated > 0 {
			return p.MaxRate
		}
		return p.MinRate
	}
	return p.clamp(estimated / available)
}

// RecalculateRate boosts base when fewer than the estimated seconds remain.
// The result is never below base and never above MaxRate; with enough time
// left it is exactly base.
func (p Pacer) RecalculateRate(text string, remaining, base float64) float64 {
	p = p.withDefaults()
	estimated := p.EstimatedDuration(text)
	if !(remaining < estimated) {
		return base
	}
	if remaining <= 0 {
		return math.Max(base, p.MaxRate)
	}
	return math.Max(base, math.Min(base*estimated/remaining, p.MaxRate))
}

func (p Pacer) clamp(rate float64) float64 {
	if math.IsNaN(rate) {
		return p.MinRate
	}
	return math.Min(math.Max(rate, p.MinRate), p.MaxRate)
}

func (p Pacer) withDefaults() Pacer {
	if p.SecondsPerChar <= 0 {
		p.SecondsPerChar = DefaultSecondsPerChar
	}
	if p.MinRate <= 0 {
		p.MinRate = DefaultMinRate
	}
	if p.MaxRate <= 0 {
		p.MaxRate = DefaultMaxRate
	}
	if p.MinRate > p.MaxRate {
		p.MinRate, p.MaxRate = p.MaxRate, p.MinRate
	}
	return p
}
