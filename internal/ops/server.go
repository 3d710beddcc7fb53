// Package ops serves the operational HTTP endpoints: Prometheus metrics and
// a database health check.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"daily-mission-tracker/internal/metrics"
	"daily-mission-tracker/internal/pkg/db"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// connStatser is implemented by checkers that can report pool usage.
type connStatser interface {
	ConnStats() db.PoolStats
}

// Server is the operational HTTP listener.
type Server struct {
	srv    *http.Server
	health HealthChecker
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, health HealthChecker) *Server {
	s := &Server{health: health}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the routes served by the listener.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

type healthResponse struct {
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Connections *db.PoolStats `json:"connections,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if err := s.health.HealthCheck(ctx); err != nil {
		resp = healthResponse{Status: "unavailable", Error: err.Error()}
		code = http.StatusServiceUnavailable
	}
	if cs, ok := s.health.(connStatser); ok {
		stats := cs.ConnStats()
		resp.Connections = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Ops server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("Ops server stopped")
	return nil
}
