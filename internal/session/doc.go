// Package session coordinates one narration session per watched video.
//
// Enable loads captions, merges them, runs the translation pipeline in the
// background and then hands the narrated cues to a playback scheduler.
// Clock events (Tick, Pause, Resume) are forwarded to that scheduler once
// the session is ready. Switching video or locale tears the old session
// down, cancelling any preparation still running.
package session
