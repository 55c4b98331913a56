package cues

import (
	"strings"

	"dubsync/internal/config"
)

const (
	// DefaultMaxGap is the largest silence, in seconds, bridged by a merge.
	DefaultMaxGap = 0.2
	// DefaultMaxDuration caps the span of a merged phrase in seconds.
	DefaultMaxDuration = 4.0
	// DefaultTerminators end a phrase; a cue ending in one is never extended.
	DefaultTerminators = ".!?。！？"
)

// Merger coalesces fragmentary caption cues into phrases.
type Merger struct {
	MaxGap      float64
	MaxDuration float64
	Terminators string
}

// DefaultMerger returns a Merger with the default thresholds.
func DefaultMerger() Merger {
	return Merger{MaxGap: DefaultMaxGap, MaxDuration: DefaultMaxDuration, Terminators: DefaultTerminators}
}

// MergerFromConfig returns a Merger using the configured thresholds.
func MergerFromConfig(cfg config.Merge) Merger {
	return Merger{MaxGap: cfg.MaxGapSeconds, MaxDuration: cfg.MaxPhraseSeconds}.withDefaults()
}

// Merge coalesces raw using the default thresholds.
func Merge(raw []RawCue) []Cue {
	return DefaultMerger().Merge(raw)
}

// Merge scans raw in order. A cue joins the current phrase when the gap after
// the phrase is below MaxGap, the phrase text does not end in a terminator,
// and the combined span stays within MaxDuration. Output is in input order
// and merging the output again returns it unchanged.
func (m Merger) Merge(raw []RawCue) []Cue {
	if len(raw) == 0 {
		return []Cue{}
	}
	m = m.withDefaults()

	out := make([]Cue, 0, len(raw))
	acc := Cue(raw[0])
	for _, next := range raw[1:] {
		if m.joins(acc, next) {
			acc.Duration = next.End() - acc.Start
			acc.Text = acc.Text + " " + next.Text
			continue
		}
		out = append(out, acc)
		acc = Cue(next)
	}
	return append(out, acc)
}

func (m Merger) joins(acc Cue, next RawCue) bool {
	gap := next.Start - acc.End()
	if gap >= m.MaxGap {
		return false
	}
	if m.endsPhrase(acc.Text) {
		return false
	}
	return next.End()-acc.Start <= m.MaxDuration
}

func (m Merger) endsPhrase(text string) bool {
	text = strings.TrimRight(text, " \t\r\n")
	if text == "" {
		return false
	}
	for _, r := range m.Terminators {
		if strings.HasSuffix(text, string(r)) {
			return true
		}
	}
	return false
}

func (m Merger) withDefaults() Merger {
	if m.MaxGap <= 0 {
		m.MaxGap = DefaultMaxGap
	}
	if m.MaxDuration <= 0 {
		m.MaxDuration = DefaultMaxDuration
	}
	if m.Terminators == "" {
		m.Terminators = DefaultTerminators
	}
	return m
}
