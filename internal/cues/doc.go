// Package cues defines caption cue types and the merger that coalesces
// fragmentary caption cues into phrases suitable for translation and
// narration.
package cues
