// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package api serves the daemon's operational endpoints: liveness and
// Prometheus metrics. There is no data-facing API; synced data lives in the
// document store.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/salonsync/internal/logging"
)

// Server hosts /healthz and /metrics for the daemon mode.
type Server struct {
	srv *http.Server
}

// New builds the server on the given listen address.
func New(addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown or a listener failure. Blocks.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.srv.Addr).Msg("Starting operational HTTP server")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
