package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dubsync/internal/config"
	"dubsync/internal/logging"
	"dubsync/internal/session"
)

// SessionController is the session surface the API drives;
// *session.Manager satisfies it.
type SessionController interface {
	Enable(ctx context.Context, req session.EnableRequest) error
	Disable()
	UpdateLocale(ctx context.Context, locale string, creds config.Credentials) error
	Tick(position float64)
	Pause(position float64)
	Resume(position float64)
	Status() session.Status
}

// Server exposes the session controller over HTTP.
type Server struct {
	bind    string
	logger  *slog.Logger
	session SessionController
	router  chi.Router

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router for cfg.Paths.
func NewServer(cfg *config.Config, controller SessionController, logger *slog.Logger) *Server {
	s := &Server{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api"),
		session: controller,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(requestContext)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(corsOptions(cfg.Paths.AllowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(cfg.Paths.APIToken))
			r.Use(bodyLimit)

			r.Get("/session", s.handleStatus)
			r.Post("/session/enable", s.handleEnable)
			r.Post("/session/disable", s.handleDisable)
			r.Post("/session/locale", s.handleLocale)
			r.Post("/clock", s.handleClock)
		})
	})
	s.router = r

	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
}
