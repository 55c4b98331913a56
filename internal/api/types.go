package api

import (
	"dubsync/internal/config"
	"dubsync/internal/session"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status       string        `json:"status"`
	SessionState session.State `json:"session_state"`
}

// LocaleRequest switches the target language of the active session.
type LocaleRequest struct {
	TargetLocale string             `json:"target_locale"`
	Credentials  config.Credentials `json:"credentials"`
}

// ClockRequest reports the player position. State is "playing" or "paused";
// empty means playing.
type ClockRequest struct {
	Position *float64 `json:"position"`
	State    string   `json:"state"`
}

// AcceptedResponse acknowledges work that continues in the background.
type AcceptedResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	State     session.State `json:"state"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	clockPlaying = "playing"
	clockPaused  = "paused"
)
