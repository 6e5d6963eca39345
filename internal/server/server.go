// Package server assembles the HTTP surface: routing, CORS, access logging,
// and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/loglake/loglake/internal/config"
	"github.com/loglake/loglake/internal/handlers"
	"github.com/loglake/loglake/internal/middleware"
)

// Server is the HTTP front of the canonical store.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New builds the router and wraps it with CORS, logging, and panic recovery.
func New(cfg config.ServerConfig, h *handlers.Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/query", h.Query)
	mux.HandleFunc("GET /v1/traces/{id}", h.Trace)
	mux.HandleFunc("GET /v1/services/stats", h.ServiceStats)
	mux.HandleFunc("GET /v1/monitoring/schema-coverage", h.SchemaCoverage)
	mux.HandleFunc("GET /v1/monitoring/ingest-latency", h.IngestLatency)
	mux.HandleFunc("POST /v1/sources/{id}/run", h.RunSource)
	mux.HandleFunc("GET /v1/batches", h.Batches)
	mux.HandleFunc("GET /v1/export", h.Export)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	var handler http.Handler = mux
	handler = middleware.Recover(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = corsHandler.Handler(handler)

	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
