// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/avolkov/salonsync/internal/logging"
	"github.com/avolkov/salonsync/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so sync runs stop
// hammering the platform when it is unavailable or degraded. 429 backoff
// still happens inside Client; the breaker reacts to sustained failures
// across calls.
//
// The breaker uses real time for its interval and timeout. Tests should
// exercise the wrapped Client directly.
type BreakerClient struct {
	*Client
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerClient creates a circuit-breaker-protected client.
// Breaker configuration:
//   - 3 concurrent probes in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens at a 60% failure rate over at least 10 requests
func NewBreakerClient(cfg Config) *BreakerClient {
	client := New(cfg)
	name := fmt.Sprintf("yclients-company-%d", cfg.CompanyID)

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", breakerStateLabel(from)).
				Str("to", breakerStateLabel(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &BreakerClient{Client: client, cb: cb, name: name}
}

// execute funnels one API call through the breaker. Validation errors do not
// count against the breaker: they fail before any network activity and say
// nothing about platform health.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		result, err := fn()
		if err != nil && isValidationError(err) {
			// Smuggle the error past the breaker's failure accounting.
			return validationFailure{err}, nil
		}
		return result, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("breaker", b.name).Err(err).Msg("Request rejected by circuit breaker")
		}
		return nil, err
	}
	if vf, ok := result.(validationFailure); ok {
		return nil, vf.err
	}
	return result, nil
}

type validationFailure struct{ err error }

func isValidationError(err error) bool {
	return errors.Is(err, ErrNoUserToken) ||
		errors.Is(err, ErrNoDigits) ||
		errors.Is(err, ErrEmptyPhone) ||
		errors.Is(err, ErrMissingClientRef)
}

// envelopeResult type-casts a breaker result back to an Envelope.
func envelopeResult(result any, err error) (*Envelope, error) {
	if err != nil {
		return nil, err
	}
	env, ok := result.(*Envelope)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return env, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateLabel(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// State returns the breaker's current state label for diagnostics.
func (b *BreakerClient) State() string {
	return breakerStateLabel(b.cb.State())
}

func (b *BreakerClient) ListBranches(ctx context.Context, opts BranchesOptions) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListBranches(ctx, opts)
	}))
}

func (b *BreakerClient) ListStaff(ctx context.Context, opts StaffOptions) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListStaff(ctx, opts)
	}))
}

func (b *BreakerClient) ListServices(ctx context.Context, opts ServicesOptions) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListServices(ctx, opts)
	}))
}

func (b *BreakerClient) ListCompanyServices(ctx context.Context) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListCompanyServices(ctx)
	}))
}

func (b *BreakerClient) ListServiceCategories(ctx context.Context, opts CategoriesOptions) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListServiceCategories(ctx, opts)
	}))
}

func (b *BreakerClient) ListServicesByStaff(ctx context.Context, staffID int64, dateTime string) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ListServicesByStaff(ctx, staffID, dateTime)
	}))
}

func (b *BreakerClient) GetCompany(ctx context.Context, companyID int64) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.GetCompany(ctx, companyID)
	}))
}

func (b *BreakerClient) GetBookForm(ctx context.Context, formID int64) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.GetBookForm(ctx, formID)
	}))
}

func (b *BreakerClient) SearchClients(ctx context.Context, query SearchQuery) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.SearchClients(ctx, query)
	}))
}

func (b *BreakerClient) ClientVisits(ctx context.Context, query VisitsQuery) (*Envelope, error) {
	return envelopeResult(b.execute(func() (any, error) {
		return b.Client.ClientVisits(ctx, query)
	}))
}
