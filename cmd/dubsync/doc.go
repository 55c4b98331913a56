// Package main hosts the dubsync CLI entrypoint and command graph.
//
// The Cobra command tree covers configuration scaffolding, preflight checks,
// one-shot caption merging and translation, terminal narration driven by a
// simulated player, the control API server used by the browser companion,
// and translation memo maintenance. Configuration loading and logger setup
// happen once in commandContext so subcommands only wire internal packages.
package main
