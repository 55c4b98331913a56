// Package player simulates a video player's clock for command-line
// narration: play, pause and seek, with periodic position ticks.
package player
