// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/salonsync/internal/profile"
	"github.com/avolkov/salonsync/internal/yclients"
)

// fakeStore is an in-memory DocumentStore.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]map[string]any)}
}

func storeKey(collection, docID string) string { return collection + "/" + docID }

func (f *fakeStore) Upsert(_ context.Context, collection, docID string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[storeKey(collection, docID)] = doc
	return nil
}

func (f *fakeStore) Merge(_ context.Context, collection, docID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := storeKey(collection, docID)
	doc := f.docs[key]
	if doc == nil {
		doc = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.docs[key] = doc
	return nil
}

func (f *fakeStore) Get(_ context.Context, collection, docID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[storeKey(collection, docID)], nil
}

func (f *fakeStore) AdjustForStorage(t time.Time) time.Time { return t }

// fakeAPI returns canned envelopes and records closes.
type fakeAPI struct {
	companyID       int64
	failInfo        bool
	embedCategories bool
	failCategories  bool
	closed          *int
	mu              *sync.Mutex
}

func env(data any) *yclients.Envelope {
	return &yclients.Envelope{Success: true, Data: data, Meta: []any{}}
}

func (f *fakeAPI) GetCompany(_ context.Context, companyID int64) (*yclients.Envelope, error) {
	if f.failInfo {
		return nil, errors.New("boom")
	}
	return env(map[string]any{
		"id":      companyID,
		"title":   fmt.Sprintf("Salon %d", companyID),
		"phone":   "+79000000000",
		"address": "Lenina 1",
	}), nil
}

func (f *fakeAPI) ListServices(context.Context, yclients.ServicesOptions) (*yclients.Envelope, error) {
	e := env([]any{map[string]any{"id": float64(10), "title": "Haircut"}})
	if f.embedCategories {
		e.Categories = []any{map[string]any{"id": float64(7), "title": "Hair"}}
	}
	return e, nil
}

func (f *fakeAPI) ListCompanyServices(context.Context) (*yclients.Envelope, error) {
	return env([]any{
		map[string]any{"id": float64(10), "title": "Haircut", "price_min": float64(1000), "category_id": float64(7)},
		map[string]any{"id": float64(11), "title": "Haircut", "price_min": float64(1500), "category_id": float64(7)},
	}), nil
}

func (f *fakeAPI) ListServiceCategories(context.Context, yclients.CategoriesOptions) (*yclients.Envelope, error) {
	if f.failCategories {
		return nil, yclients.ErrNoUserToken
	}
	return env([]any{map[string]any{"id": float64(7), "title": "Hair"}}), nil
}

func (f *fakeAPI) ListStaff(context.Context, yclients.StaffOptions) (*yclients.Envelope, error) {
	return env([]any{map[string]any{"id": float64(5), "name": "Maria"}}), nil
}

func (f *fakeAPI) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.closed++
}

func testProfile(salonIDs ...int64) profile.Profile {
	return profile.Profile{
		Name:     "Test",
		Timezone: "UTC",
		SalonIDs: salonIDs,
		YClients: profile.Credentials{PartnerToken: "pt", UserToken: "ut"},
	}
}

func TestRunFullSync(t *testing.T) {
	store := newFakeStore()
	var closed int
	var mu sync.Mutex
	factory := func(companyID int64) SalonAPI {
		return &fakeAPI{companyID: companyID, closed: &closed, mu: &mu}
	}

	s := New(testProfile(100, 200), store, factory)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, id := range []string{"100", "200"} {
		salon, _ := store.Get(context.Background(), "salons", id)
		if salon == nil {
			t.Fatalf("salon %s not persisted", id)
		}
		for _, field := range []string{"salon_info", "services", "staff", "categories", "updated_at"} {
			if _, ok := salon[field]; !ok {
				t.Errorf("salon %s missing %s", id, field)
			}
		}

		prompts, _ := store.Get(context.Background(), "prompts", id)
		if prompts == nil {
			t.Fatalf("prompts %s not persisted", id)
		}
		if prompts["id"] != id {
			t.Errorf("prompts id = %v", prompts["id"])
		}
		services, ok := prompts["service_name_to_id"].(map[string]any)
		if !ok {
			t.Fatalf("missing service_name_to_id in %v", prompts)
		}
		variants, _ := services["Haircut"].([]any)
		if len(variants) != 2 {
			t.Errorf("expected 2 service variants under one name, got %v", services)
		}
	}

	// One client per salon per fetch phase (info, services, staff).
	mu.Lock()
	defer mu.Unlock()
	if closed != 6 {
		t.Errorf("expected 6 client closes, got %d", closed)
	}
}

func TestServicesPhasePrefersEmbeddedCategories(t *testing.T) {
	store := newFakeStore()
	var closed int
	var mu sync.Mutex
	factory := func(companyID int64) SalonAPI {
		return &fakeAPI{companyID: companyID, embedCategories: true, failCategories: true, closed: &closed, mu: &mu}
	}

	// The category endpoint needs the user token; when the services response
	// carries the categories sibling the sync must use it and never hit the
	// separate endpoint, so a token-less profile still gets categories.
	s := New(testProfile(100), store, factory)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	salon, _ := store.Get(context.Background(), "salons", "100")
	if salon == nil {
		t.Fatal("salon not persisted")
	}
	cats, ok := salon["categories"].(map[string]any)
	if !ok {
		t.Fatalf("categories = %#v, want a document", salon["categories"])
	}
	list, _ := cats["data"].([]any)
	if len(list) != 1 {
		t.Fatalf("categories data = %#v, want the embedded list", cats["data"])
	}
	if _, ok := salon["categories_updated_at"]; !ok {
		t.Error("missing categories_updated_at")
	}
}

func TestServicesPhaseDegradesWithoutCategories(t *testing.T) {
	store := newFakeStore()
	var closed int
	var mu sync.Mutex
	factory := func(companyID int64) SalonAPI {
		return &fakeAPI{companyID: companyID, failCategories: true, closed: &closed, mu: &mu}
	}

	s := New(testProfile(100), store, factory)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("category fetch failure must degrade, not fail the run: %v", err)
	}

	salon, _ := store.Get(context.Background(), "salons", "100")
	if salon == nil || salon["services"] == nil {
		t.Fatal("services missing")
	}
	if _, ok := salon["categories"]; ok {
		t.Errorf("categories = %#v, want absent", salon["categories"])
	}
}

func TestRunIsolatesFailedSalon(t *testing.T) {
	store := newFakeStore()
	var closed int
	var mu sync.Mutex
	factory := func(companyID int64) SalonAPI {
		return &fakeAPI{companyID: companyID, failInfo: companyID == 100, closed: &closed, mu: &mu}
	}

	s := New(testProfile(100, 200), store, factory)
	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for failed salon")
	}
	if !strings.Contains(err.Error(), "phase failures") {
		t.Errorf("unexpected error %v", err)
	}

	// The healthy salon still synced fully.
	salon, _ := store.Get(context.Background(), "salons", "200")
	if salon == nil || salon["salon_info"] == nil {
		t.Error("healthy salon missing data")
	}
	// The failed salon still got its later phases.
	failed, _ := store.Get(context.Background(), "salons", "100")
	if failed == nil || failed["staff"] == nil {
		t.Error("failed salon should still have staff data from later phases")
	}
	if _, ok := failed["salon_info"]; ok {
		t.Error("failed phase should not have written salon_info")
	}

	mu.Lock()
	defer mu.Unlock()
	if closed != 6 {
		t.Errorf("every client must be closed even on failure, got %d closes", closed)
	}
}

func TestRunRequiresSalonIDs(t *testing.T) {
	s := New(testProfile(), newFakeStore(), func(int64) SalonAPI { return nil })
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for empty salon list")
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	store := newFakeStore()
	var closed int
	var mu sync.Mutex
	ctx, cancel := context.WithCancel(context.Background())
	factory := func(companyID int64) SalonAPI {
		cancel()
		return &fakeAPI{companyID: companyID, closed: &closed, mu: &mu}
	}

	s := New(testProfile(100, 200), store, factory)
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	s := New(testProfile(100), newFakeStore(), func(int64) SalonAPI { return nil })
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("overlapping run must be a no-op, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("overlapping run blocked instead of skipping")
	}
}
