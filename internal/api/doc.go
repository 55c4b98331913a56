// Package api serves the control surface used by the browser companion.
//
// Routes live under /api on a chi router: GET /health is public; the
// session routes (GET /session, POST /session/enable, /session/disable,
// /session/locale) and POST /clock require the configured bearer token when
// one is set. Enable and locale changes answer 202 while preparation runs
// in the background. Errors are JSON {"error": "..."} with the status
// derived from the services error markers.
package api
