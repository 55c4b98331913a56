// Package services defines shared utilities consumed by the narration engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session, video and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper, so translation and
//     caption failures classify consistently into API statuses and retry
//     decisions.
//
// Subpackages hold the HTTP clients for the translation backends.
package services
