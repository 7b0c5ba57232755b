// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package metrics exposes Prometheus instrumentation for the API client
// wrapper, the sync pipeline and the document store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API client metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yclients_api_requests_total",
			Help: "Total number of YCLIENTS API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "rate_limited", "api_error", "network_error"
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yclients_api_request_duration_seconds",
			Help:    "Duration of YCLIENTS API requests in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yclients_api_retries_total",
			Help: "Total number of retry sleeps taken after HTTP 429 responses",
		},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yclients_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Sync pipeline metrics

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonsync_runs_total",
			Help: "Total number of full sync runs by result",
		},
		[]string{"result"}, // "success", "failure", "canceled"
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salonsync_run_duration_seconds",
			Help:    "Duration of full sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SyncPhaseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonsync_phase_errors_total",
			Help: "Total number of per-salon phase failures",
		},
		[]string{"phase"}, // "salon_info", "services", "staff", "simplified"
	)

	// Document store metrics

	DocumentsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonsync_documents_upserted_total",
			Help: "Total number of documents upserted by collection",
		},
		[]string{"collection"},
	)
)
