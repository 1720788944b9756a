package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes /health and /metrics for a running scan process
type Server struct {
	metrics *MetricsRegistry
	logger  zerolog.Logger
	srv     *http.Server
}

// NewServer creates the monitoring server on the given address
func NewServer(addr string, metrics *MetricsRegistry, logger zerolog.Logger) *Server {
	s := &Server{metrics: metrics, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("monitoring server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
