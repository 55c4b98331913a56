// Package logging assembles the structured slog loggers used across dubsync.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag records with session, video and request
// identifiers. A no-op logger is provided for tests and for wiring code that
// must not fail.
package logging
