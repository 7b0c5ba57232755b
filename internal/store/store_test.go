// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package store

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T, timezone string) *Store {
	t.Helper()
	s, err := New(Options{
		Dir:      t.TempDir(),
		Name:     "test",
		Timezone: timezone,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	doc := map[string]any{"id": float64(1), "title": "Main Salon"}
	if err := s.Upsert(ctx, "salons", "1", doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "salons", "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["title"] != "Main Salon" {
		t.Errorf("unexpected document %v", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := newTestStore(t, "")

	got, err := s.Get(context.Background(), "salons", "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing document, got %v", got)
	}
}

func TestUpsertReplacesBody(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	if err := s.Upsert(ctx, "salons", "1", map[string]any{"title": "Old", "stale": true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, "salons", "1", map[string]any{"title": "New"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "salons", "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["title"] != "New" {
		t.Errorf("expected replacement, got %v", got)
	}
	if _, ok := got["stale"]; ok {
		t.Error("upsert must replace the whole body")
	}

	n, err := s.Count(ctx, "salons")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected a single document, got %d", n)
	}
}

func TestMergePreservesUnnamedFields(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	if err := s.Upsert(ctx, "salons", "1", map[string]any{"title": "Main", "city": "Perm"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Merge(ctx, "salons", "1", map[string]any{"title": "Renamed"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	got, err := s.Get(ctx, "salons", "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["title"] != "Renamed" || got["city"] != "Perm" {
		t.Errorf("unexpected merged document %v", got)
	}
}

func TestMergeInsertsWhenMissing(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	if err := s.Merge(ctx, "prompts", "99", map[string]any{"salon_info": map[string]any{}}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := s.Get(ctx, "prompts", "99")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected merge to insert")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := s.Upsert(ctx, "salons", id, map[string]any{"id": id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	docs, err := s.List(ctx, "salons")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if docs[0]["id"] != "a" || docs[2]["id"] != "c" {
		t.Errorf("expected id ordering, got %v", docs)
	}

	other, err := s.List(ctx, "other")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty collection, got %v", other)
	}
}

func TestAdjustForStorage(t *testing.T) {
	t.Run("UTC is identity", func(t *testing.T) {
		s := newTestStore(t, "UTC")
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		if got := s.AdjustForStorage(now); !got.Equal(now) {
			t.Errorf("AdjustForStorage = %v, want %v", got, now)
		}
	})

	t.Run("fixed-offset zone shifts by its offset", func(t *testing.T) {
		// Asia/Yekaterinburg is UTC+5 year-round.
		s := newTestStore(t, "Asia/Yekaterinburg")
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		want := now.Add(5 * time.Hour)
		if got := s.AdjustForStorage(now); !got.Equal(want) {
			t.Errorf("AdjustForStorage = %v, want %v", got, want)
		}
	})

	t.Run("unknown timezone falls back to UTC", func(t *testing.T) {
		s := newTestStore(t, "Not/AZone")
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		if got := s.AdjustForStorage(now); !got.Equal(now) {
			t.Errorf("AdjustForStorage = %v, want %v", got, now)
		}
	})
}
