package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"dubsync/internal/logging"
	"dubsync/internal/services"
	"dubsync/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", SessionState: s.session.Status().State})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req session.EnableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.session.Enable(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.accepted(w)
}

func (s *Server) handleDisable(w http.ResponseWriter, _ *http.Request) {
	s.session.Disable()
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleLocale(w http.ResponseWriter, r *http.Request) {
	var req LocaleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.TargetLocale) == "" {
		s.fail(w, r, services.Wrap(services.ErrValidation, "api", "locale", "target_locale required", nil))
		return
	}
	if err := s.session.UpdateLocale(r.Context(), req.TargetLocale, req.Credentials); err != nil {
		s.fail(w, r, err)
		return
	}
	s.accepted(w)
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Position == nil || math.IsNaN(*req.Position) || math.IsInf(*req.Position, 0) || *req.Position < 0 {
		s.fail(w, r, services.Wrap(services.ErrValidation, "api", "clock", "position must be a non-negative number", nil))
		return
	}
	position := *req.Position
	switch strings.ToLower(strings.TrimSpace(req.State)) {
	case "", clockPlaying:
		if s.session.Status().Paused {
			s.session.Resume(position)
		} else {
			s.session.Tick(position)
		}
	case clockPaused:
		s.session.Pause(position)
	default:
		s.fail(w, r, services.Wrap(services.ErrValidation, "api", "clock", fmt.Sprintf("unknown state %q", req.State), nil))
		return
	}
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) accepted(w http.ResponseWriter) {
	status := s.session.Status()
	writeJSON(w, http.StatusAccepted, AcceptedResponse{SessionID: status.SessionID, State: status.State})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := services.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request error", "api_error",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	writeError(w, code, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Wrap(services.ErrValidation, "api", "decode", "request body too large", nil)
		}
		return services.Wrap(services.ErrValidation, "api", "decode", "invalid JSON body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
