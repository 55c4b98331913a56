// Package preflight provides readiness checks for the translators, the
// speech engine and the directories dubsync writes to.
//
// "dubsync check" prints every result; "dubsync serve" and "dubsync narrate"
// run the same list and refuse to start when a required check fails.
// Translator checks are skipped when their credential is not configured,
// since a session may still supply one.
package preflight
