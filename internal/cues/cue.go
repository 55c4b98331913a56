package cues

import (
	"fmt"
	"math"

	"dubsync/internal/narration"
)

// RawCue is one caption fragment as delivered by the caption source.
// Times are seconds from the start of the video.
type RawCue struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns Start + Duration.
func (c RawCue) End() float64 { return c.Start + c.Duration }

// Valid reports whether the fragment has a finite non-negative start and a
// positive duration.
func (c RawCue) Valid() bool {
	if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return false
	}
	return c.Start >= 0 && c.Duration > 0
}

// Cue is a merged phrase built from one or more consecutive RawCues.
type Cue struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns Start + Duration.
func (c Cue) End() float64 { return c.Start + c.Duration }

// Contains reports whether position lies in the closed interval [Start, End].
func (c Cue) Contains(position float64) bool {
	return c.Start <= position && position <= c.End()
}

// Identity returns the key used to tell whether a cue is already active.
func (c Cue) Identity() Identity {
	return Identity{Start: c.Start, Text: c.Text}
}

// Identity distinguishes merged cues by start time and source text.
type Identity struct {
	Start float64
	Text  string
}

func (id Identity) String() string {
	return fmt.Sprintf("%.3f:%q", id.Start, id.Text)
}

// NarratedCue pairs a merged cue with its translation and the narration
// request prepared for it. Values are not modified after the pipeline
// produces them.
type NarratedCue struct {
	Cue
	TranslatedText string            `json:"translated_text"`
	BaseRate       float64           `json:"base_rate"`
	Request        narration.Request `json:"request"`
}

// Lookup returns the index of the first cue whose closed interval contains
// position, or -1.
func Lookup(list []NarratedCue, position float64) int {
	for i := range list {
		if list[i].Contains(position) {
			return i
		}
	}
	return -1
}
