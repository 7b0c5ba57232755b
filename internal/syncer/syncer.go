// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package syncer orchestrates full data synchronization for one profile. A
// run walks the profile's salons through four phases: salon info, services,
// staff, and a simplified lookup view. Failures are isolated per salon and
// per phase so one broken salon does not sink the run.
package syncer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/salonsync/internal/logging"
	"github.com/avolkov/salonsync/internal/metrics"
	"github.com/avolkov/salonsync/internal/profile"
	"github.com/avolkov/salonsync/internal/yclients"
)

const (
	collectionSalons  = "salons"
	collectionPrompts = "prompts"
)

// SalonAPI is the slice of the API client the sync phases use.
type SalonAPI interface {
	GetCompany(ctx context.Context, companyID int64) (*yclients.Envelope, error)
	ListServices(ctx context.Context, opts yclients.ServicesOptions) (*yclients.Envelope, error)
	ListCompanyServices(ctx context.Context) (*yclients.Envelope, error)
	ListServiceCategories(ctx context.Context, opts yclients.CategoriesOptions) (*yclients.Envelope, error)
	ListStaff(ctx context.Context, opts yclients.StaffOptions) (*yclients.Envelope, error)
	Close()
}

// DocumentStore is the persistence boundary the syncer writes through.
type DocumentStore interface {
	Upsert(ctx context.Context, collection, docID string, doc map[string]any) error
	Merge(ctx context.Context, collection, docID string, fields map[string]any) error
	Get(ctx context.Context, collection, docID string) (map[string]any, error)
	AdjustForStorage(t time.Time) time.Time
}

// ClientFactory builds an API client scoped to one salon. The syncer closes
// every client it obtains.
type ClientFactory func(companyID int64) SalonAPI

// Syncer runs full synchronization for one profile.
type Syncer struct {
	profile   profile.Profile
	docs      DocumentStore
	newClient ClientFactory

	// mu serializes runs; an overlapping trigger is skipped, not queued.
	mu sync.Mutex
}

// New creates a Syncer. The factory seam exists so tests can substitute
// fakes for the API client.
func New(p profile.Profile, docs DocumentStore, factory ClientFactory) *Syncer {
	return &Syncer{profile: p, docs: docs, newClient: factory}
}

// DefaultClientFactory builds circuit-breaker-protected clients from the
// profile's credentials and proxy settings.
func DefaultClientFactory(p profile.Profile, base yclients.Config) ClientFactory {
	return func(companyID int64) SalonAPI {
		cfg := base
		cfg.CompanyID = companyID
		cfg.PartnerToken = p.YClients.PartnerToken
		cfg.UserToken = p.YClients.UserToken
		cfg.Proxy = p.Proxy.URL()
		return yclients.NewBreakerClient(cfg)
	}
}

// Run executes one full sync. Returns an error when any salon failed any
// phase; data for the salons that succeeded is still persisted. A run that
// would overlap an in-flight one is skipped.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.mu.TryLock() {
		logging.Warn().Str("profile", s.profile.Name).Msg("Sync already running, skipping trigger")
		return nil
	}
	defer s.mu.Unlock()

	if len(s.profile.SalonIDs) == 0 {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("profile %q has no salon ids configured", s.profile.Name)
	}

	runID := uuid.NewString()
	started := time.Now()
	log := logging.With().Str("run_id", runID).Str("profile", s.profile.Name).Logger()
	log.Info().Ints64("salon_ids", s.profile.SalonIDs).Msg("Starting full sync")

	failures := 0
	phases := []struct {
		name string
		fn   func(context.Context, int64) error
	}{
		{"salon_info", s.syncSalonInfo},
		{"services", s.syncServices},
		{"staff", s.syncStaff},
		{"simplified", s.syncSimplified},
	}

	for _, phase := range phases {
		for _, salonID := range s.profile.SalonIDs {
			if err := ctx.Err(); err != nil {
				metrics.SyncRunsTotal.WithLabelValues("canceled").Inc()
				return err
			}
			if err := phase.fn(ctx, salonID); err != nil {
				log.Error().Err(err).Int64("salon_id", salonID).Str("phase", phase.name).Msg("Phase failed for salon")
				metrics.SyncPhaseErrors.WithLabelValues(phase.name).Inc()
				failures++
			}
		}
	}

	duration := time.Since(started)
	metrics.SyncRunDuration.Observe(duration.Seconds())
	if failures > 0 {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		log.Error().Int("failures", failures).Dur("duration", duration).Msg("Full sync completed with errors")
		return fmt.Errorf("sync run %s: %d phase failures", runID, failures)
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	log.Info().Dur("duration", duration).Msg("Full sync completed")
	return nil
}

// RunPeriodic runs one sync immediately and then on every interval tick
// until the context is canceled. Errors are logged, not returned; the loop
// only stops with the context.
func (s *Syncer) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Str("profile", s.profile.Name).Msg("Sync run failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				logging.Error().Err(err).Str("profile", s.profile.Name).Msg("Sync run failed")
			}
		}
	}
}

// syncSalonInfo fetches public company info and upserts it into the salons
// collection.
func (s *Syncer) syncSalonInfo(ctx context.Context, salonID int64) error {
	client := s.newClient(salonID)
	defer client.Close()

	info, err := client.GetCompany(ctx, salonID)
	if err != nil {
		return fmt.Errorf("failed to fetch salon info: %w", err)
	}

	return s.docs.Merge(ctx, collectionSalons, docID(salonID), map[string]any{
		"salon_id":   salonID,
		"salon_info": envelopeDoc(info),
		"updated_at": s.timestamp(),
	})
}

// syncServices fetches the bookable services, the full company service list
// and the category list, and merges them into the salon document. The
// company-scoped fetches need the user token; their absence degrades to a
// warning so partner-token-only profiles still sync bookable services.
func (s *Syncer) syncServices(ctx context.Context, salonID int64) error {
	client := s.newClient(salonID)
	defer client.Close()

	book, err := client.ListServices(ctx, yclients.ServicesOptions{})
	if err != nil {
		return fmt.Errorf("failed to fetch bookable services: %w", err)
	}

	companyServices, err := client.ListCompanyServices(ctx)
	if err != nil {
		logging.Warn().Err(err).Int64("salon_id", salonID).Msg("Could not fetch company services")
		companyServices = nil
	}

	// The book_services response may carry the category list alongside the
	// services; prefer that sibling over the separate endpoint, which needs
	// the user token.
	var categoriesData map[string]any
	if book.Categories != nil {
		categoriesData = map[string]any{
			"success": book.Success,
			"data":    book.Categories,
			"meta":    book.Meta,
		}
	} else {
		categories, err := client.ListServiceCategories(ctx, yclients.CategoriesOptions{})
		if err != nil {
			logging.Warn().Err(err).Int64("salon_id", salonID).Msg("Could not fetch service categories")
		} else {
			categoriesData = envelopeDoc(categories)
		}
	}

	fields := map[string]any{
		"services": map[string]any{
			"book_services":    envelopeDoc(book),
			"company_services": envelopeDoc(companyServices),
		},
		"services_updated_at": s.timestamp(),
	}
	if categoriesData != nil {
		fields["categories"] = categoriesData
		fields["categories_updated_at"] = s.timestamp()
	} else {
		logging.Warn().Int64("salon_id", salonID).Msg("No categories data available")
	}

	return s.docs.Merge(ctx, collectionSalons, docID(salonID), fields)
}

// syncStaff fetches the bookable staff list and merges it into the salon
// document.
func (s *Syncer) syncStaff(ctx context.Context, salonID int64) error {
	client := s.newClient(salonID)
	defer client.Close()

	staff, err := client.ListStaff(ctx, yclients.StaffOptions{})
	if err != nil {
		return fmt.Errorf("failed to fetch staff: %w", err)
	}

	return s.docs.Merge(ctx, collectionSalons, docID(salonID), map[string]any{
		"staff":            envelopeDoc(staff),
		"staff_updated_at": s.timestamp(),
	})
}

// syncSimplified derives the name-to-id lookup view from the synced salon
// document and upserts it into the prompts collection.
func (s *Syncer) syncSimplified(ctx context.Context, salonID int64) error {
	doc, err := s.docs.Get(ctx, collectionSalons, docID(salonID))
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("no salon document for salon %d", salonID)
	}

	simplified := buildSimplifiedDoc(salonID, doc)
	simplified["updated_at"] = s.timestamp()
	return s.docs.Merge(ctx, collectionPrompts, docID(salonID), simplified)
}

func (s *Syncer) timestamp() string {
	return s.docs.AdjustForStorage(time.Now()).Format(time.RFC3339)
}

func docID(salonID int64) string {
	return strconv.FormatInt(salonID, 10)
}

// envelopeDoc converts an Envelope back to the plain mapping persisted in
// documents. Nil envelopes become nil.
func envelopeDoc(env *yclients.Envelope) map[string]any {
	if env == nil {
		return nil
	}
	doc := map[string]any{
		"success": env.Success,
		"data":    env.Data,
		"meta":    env.Meta,
	}
	if env.Categories != nil {
		doc["categories"] = env.Categories
	}
	return doc
}
