// Package server exposes the daemon's operational HTTP surface: liveness,
// a status snapshot of the sync engine, Prometheus metrics, and the cancel
// endpoint for bulk operations.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/scheduler"
)

// StatusSource is the engine state the status endpoint reports.
type StatusSource interface {
	Scheduler() *scheduler.Scheduler
	LastSync() time.Time
}

// Server is the operational HTTP server.
type Server struct {
	http     *http.Server
	logger   zerolog.Logger
	source   StatusSource
	progress *progress.Registry
	version  string
}

// New builds the server for the given listen address.
func New(addr string, source StatusSource, registry *progress.Registry, version string) *Server {
	s := &Server{
		logger:   log.WithComponent("server"),
		source:   source,
		progress: registry,
		version:  version,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/cancel", s.handleCancel)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", s.http.Addr).
			Str("event", "server.listening").
			Msg("status server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

type statusResponse struct {
	Version      string    `json:"version"`
	ActiveAction string    `json:"active_action,omitempty"`
	Awaiting     string    `json:"awaiting,omitempty"`
	UrgentQueue  int       `json:"urgent_queue"`
	PatientQueue int       `json:"patient_queue"`
	LastSync     time.Time `json:"last_sync"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Scheduler().Snapshot()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Version:      s.version,
		ActiveAction: snap.Active,
		Awaiting:     snap.Awaiting,
		UrgentQueue:  snap.Urgent,
		PatientQueue: snap.Patient,
		LastSync:     s.source.LastSync(),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if s.progress.CancelActive() {
		s.writeJSON(w, http.StatusOK, map[string]any{"canceled": true})
		return
	}
	s.writeJSON(w, http.StatusConflict, map[string]any{
		"canceled": false,
		"reason":   "no bulk operation running",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug().Err(err).Msg("write response")
	}
}
