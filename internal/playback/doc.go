// Package playback drives narration from a playback clock.
//
// A Scheduler owns the active-cue identity, a single-slot look-ahead timer
// and the exclusive narration sink. Each clock tick either leaves the armed
// cue alone, activates a new cue (cancelling the old narration first), or
// drops back to Idle when the position falls between cues. Timers carry a
// generation number so a firing that lost a race with a newer tick is a
// no-op.
package playback
