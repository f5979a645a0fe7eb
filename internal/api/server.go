// Package api exposes the assistant's command surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aversine/adjutant/internal/auth"
	"github.com/aversine/adjutant/internal/log"
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/router"
	"github.com/aversine/adjutant/internal/task"
)

// Config holds API server settings.
type Config struct {
	Listen string
	APIKey string
}

// Server is the HTTP front door. Everything except /healthz requires the
// configured bearer key.
type Server struct {
	config    Config
	registry  *plugin.Registry
	commands  *router.Router
	tracker   *task.Tracker
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates an API server over a loaded registry and command router.
// tracker may be nil.
func New(config Config, registry *plugin.Registry, commands *router.Router, tracker *task.Tracker) *Server {
	return &Server{
		config:    config,
		registry:  registry,
		commands:  commands,
		tracker:   tracker,
		logger:    log.WithComponent("api"),
		startedAt: time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute, // commands like deploy run long
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

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/plugins", s.handlePlugins)
		r.Get("/commands", s.handleCommands)
		r.Get("/tasks", s.handleTasks)
		r.Post("/commands/{plugin}/{command}", s.handleDispatch)
	})

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

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := auth.ExtractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !auth.ValidateAPIKey(key, s.config.APIKey) {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	PluginsLoaded int    `json:"plugins_loaded"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		PluginsLoaded: len(s.registry.Plugins()),
	})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"plugins": s.registry.Plugins(),
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"commands": s.registry.Commands(),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []task.Task
	if s.tracker != nil {
		tasks = s.tracker.List()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// DispatchRequest is the body of POST /v1/commands/{plugin}/{command}.
type DispatchRequest struct {
	Args []string          `json:"args,omitempty"`
	Opts map[string]string `json:"opts,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	pluginName := chi.URLParam(r, "plugin")
	command := chi.URLParam(r, "command")
	fullName := pluginName + ":" + command

	var req DispatchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	argv := append([]string{}, req.Args...)
	for k, v := range req.Opts {
		argv = append(argv, "--"+k+"="+v)
	}

	res := s.commands.Route(r.Context(), fullName, argv)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
		if !s.registry.Has(fullName) {
			status = http.StatusNotFound
		}
	}
	s.writeJSON(w, status, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
