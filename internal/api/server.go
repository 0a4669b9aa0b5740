// Package api is the thin control-plane HTTP surface: schedule, list,
// delete, and tail a job's log. No auth/session machinery — callers
// identify themselves via the user fields carried in each request body,
// per SPEC_FULL.md's explicit Non-goal for this surface.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mattjoyce/automationd/internal/events"
	"github.com/mattjoyce/automationd/internal/jobsmanager"
	"github.com/mattjoyce/automationd/internal/wire"
)

// JobScheduler is the subset of jobsmanager.Manager this surface calls.
type JobScheduler interface {
	Schedule(req jobsmanager.ScheduleRequest) (wire.Status, string)
	Delete(jobID string, user wire.User) (wire.Status, string)
	List(workspace string) []wire.StatusDoc
}

// LogReader is the log-tailing subset of execstore.Store this surface calls.
type LogReader interface {
	ReadLogs(jobID string, fromByteOffset int64) (string, int64, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server is the control-plane HTTP surface.
type Server struct {
	config    Config
	scheduler JobScheduler
	logs      LogReader
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance.
func New(config Config, scheduler JobScheduler, logs LogReader, hub *events.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		scheduler: scheduler,
		logs:      logs,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // long enough for a held-open SSE stream
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("api server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Default().Handler)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/workspaces/{workspace}/jobs", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleSchedule)
	})
	r.Delete("/jobs/{jobID}", s.handleDelete)
	r.Get("/jobs/{jobID}/logs", s.handleLogs)
	r.Get("/events", s.handleEvents)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
