package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldops/toolgate/internal/audit"
	"github.com/fieldops/toolgate/internal/tool"
)

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string

	// Secrets maps tool names to their shared signing secrets. Every
	// registered tool must have one.
	Secrets map[string]string

	// MaxBodySize bounds request bodies in bytes (default: 1MB).
	MaxBodySize int64

	// OperatorToken guards the GET /tools listing. Empty disables it.
	OperatorToken string
}

// Server exposes each registered tool at POST /tools/<name>, plus a health
// endpoint and an operator tool listing.
type Server struct {
	config   Config
	registry *tool.Registry
	logger   *slog.Logger
	recorder audit.Recorder
	server   *http.Server

	handlers map[string]*Handler
}

// NewServer builds handlers for every registered tool. Fails if any tool
// lacks a configured secret.
func NewServer(cfg Config, registry *tool.Registry, recorder audit.Recorder, logger *slog.Logger) (*Server, error) {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	handlers := make(map[string]*Handler)
	for _, t := range registry.List() {
		secret, ok := cfg.Secrets[t.Name()]
		if !ok || secret == "" {
			return nil, fmt.Errorf("tool %q: no signing secret configured", t.Name())
		}
		handlers[t.Name()] = NewHandler(t, secret, logger,
			WithRecorder(recorder),
			WithMaxBodySize(cfg.MaxBodySize),
		)
	}

	return &Server{
		config:   cfg,
		registry: registry,
		logger:   logger,
		recorder: recorder,
		handlers: handlers,
	}, nil
}

// Routes returns the fully configured HTTP handler, for embedding the
// server in another mux or exercising it with httptest.
func (s *Server) Routes() http.Handler {
	return s.setupRoutes()
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "tools", len(s.handlers))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.With(s.requireOperatorToken).Get("/tools", s.handleListTools)

	// Tool endpoints are registered for all methods so the pipeline's own
	// 405 response (JSON body included) applies instead of the router's.
	for name, h := range s.handlers {
		r.Handle("/tools/"+name, h)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTools returns the registered tool descriptors: name,
// description, parameter schema and declared env names. Secrets are never
// included.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.registry.List()
	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters().Raw(),
			Env:         t.Env(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tools": infos})
}
