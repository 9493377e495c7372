package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

// Server exposes the metric ingestion surface over HTTP, plus health and
// Prometheus endpoints. Transport is deliberately thin; all semantics live in
// the store and the loop.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	store      store.Store
	httpServer *http.Server
}

// NewServer builds the HTTP server and its routes.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, st store.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, logger: logger, store: st}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/metrics", s.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/metrics", s.handleQuery).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/actions", s.handleListActions).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	s.logger.Info("ingestion server listening", slog.String("address", s.cfg.Address))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
