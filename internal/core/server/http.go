// Package server provides HTTP server lifecycle management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/planora/automations/internal/core/config"
	"github.com/planora/automations/internal/engine"
	"github.com/planora/automations/internal/types"
)

// HTTPServer manages HTTP server lifecycle.
type HTTPServer struct {
	server *http.Server
	config *config.IngestAPIConfig
	engine *engine.Engine
	log    *slog.Logger
}

// NewHTTPServer creates the ingestion HTTP server with routing and
// middleware configured.
func NewHTTPServer(cfg *config.IngestAPIConfig, eng *engine.Engine, log *slog.Logger) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &HTTPServer{
		config: cfg,
		engine: eng,
		log:    log,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

func (s *HTTPServer) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/events", s.handleIngestEvent)

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleIngestEvent decodes the inbound event document and hands it to the
// engine. Normalization failures map to 400; an accepted event always
// returns 200 with the matched actions, even when zero rules fired.
func (s *HTTPServer) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var raw any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := s.engine.Ingest(r.Context(), raw)
	if err != nil {
		s.log.Warn("event rejected", "error", err)
		writeError(w, statusForIngestError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// statusForIngestError maps normalization errors onto HTTP statuses.
// Everything Normalize can return is a client problem.
func statusForIngestError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidPayload),
		errors.Is(err, types.ErrMissingType),
		errors.Is(err, types.ErrUnsupportedChannel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// Start serves HTTP requests and blocks until Shutdown is called.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.log.Info("ingest api listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server with a 30-second timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
