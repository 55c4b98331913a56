// Package store keeps prepared narration around.
//
// CueCache is the in-process map from video id to narrated cues, evicted
// when a session stops or changes video. Memo is the SQLite translation
// memo shared across runs (modernc.org/sqlite, WAL journal, busy retry).
package store
