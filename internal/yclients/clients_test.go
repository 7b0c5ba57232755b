// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// clientSearchHandler serves the two endpoints LastVisitInfo touches: the
// client search and the visit-history search.
func clientSearchHandler(t *testing.T, clients []map[string]any, visits map[string]any) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		switch {
		case strings.HasSuffix(r.URL.Path, "/clients/search"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    clients,
				"meta":    map[string]any{"total_count": len(clients)},
			})
		case strings.HasSuffix(r.URL.Path, "/clients/visits/search"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    visits,
				"meta":    []any{},
			})
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestFindClientByPhone(t *testing.T) {
	t.Parallel()

	clients := []map[string]any{
		{"id": 101, "name": "Anna", "phone": "+7 (922) 661-17-68"},
		{"id": 102, "name": "Boris", "phone": "79996611768"},
	}

	srv := httptest.NewServer(clientSearchHandler(t, clients, nil))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})

	t.Run("exact match", func(t *testing.T) {
		got, err := c.FindClientByPhone(context.Background(), "79226611768")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || asInt64(got["id"]) != 101 {
			t.Errorf("expected client 101, got %v", got)
		}
	})

	t.Run("suffix match picks first in order", func(t *testing.T) {
		// Both stored numbers end in 6611768; the first candidate wins.
		got, err := c.FindClientByPhone(context.Background(), "6611768")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || asInt64(got["id"]) != 101 {
			t.Errorf("expected first match 101, got %v", got)
		}
	})

	t.Run("short input requires exact match", func(t *testing.T) {
		got, err := c.FindClientByPhone(context.Background(), "1768")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected no match for 4-digit input, got %v", got)
		}
	})

	t.Run("invalid phone", func(t *testing.T) {
		if _, err := c.FindClientByPhone(context.Background(), "---"); !errors.Is(err, ErrNoDigits) {
			t.Errorf("expected ErrNoDigits, got %v", err)
		}
	})
}

func TestFindClientByPhoneNoCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(clientSearchHandler(t, []map[string]any{}, nil))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})

	got, err := c.FindClientByPhone(context.Background(), "79226611768")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown phone, got %v", got)
	}
}

func TestLastVisitInfo(t *testing.T) {
	t.Parallel()

	clients := []map[string]any{
		{"id": 101, "name": "Anna", "phone": "79226611768"},
	}
	visits := map[string]any{
		"records": []any{
			map[string]any{
				// Newest visit but its staff block has no name.
				"id":         float64(903),
				"date":       "2024-04-01 15:00:00",
				"attendance": float64(1),
				"staff":      map[string]any{"id": float64(9), "name": ""},
			},
			map[string]any{
				"id":         float64(901),
				"date":       "2024-03-01 12:00:00",
				"attendance": float64(1),
				"staff": map[string]any{
					"id":             float64(5),
					"name":           "Maria",
					"specialization": "Stylist",
				},
			},
			map[string]any{
				"id":         float64(902),
				"date":       "2024-01-15 10:00:00",
				"attendance": float64(0),
				"staff": map[string]any{
					"id":   float64(6),
					"name": "Olga",
				},
			},
		},
	}

	srv := httptest.NewServer(clientSearchHandler(t, clients, visits))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})

	visit, err := c.LastVisitInfo(context.Background(), "+7 922 661 17 68")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visit == nil {
		t.Fatal("expected a visit record")
	}
	if visit.StaffID != 5 || visit.StaffName != "Maria" {
		t.Errorf("expected staff 5 (Maria), got %d (%s)", visit.StaffID, visit.StaffName)
	}
	if visit.LastVisitDate != "2024-03-01 12:00:00" {
		t.Errorf("unexpected visit date %q", visit.LastVisitDate)
	}
	if visit.LastVisitID != 901 {
		t.Errorf("unexpected visit id %d", visit.LastVisitID)
	}
	if visit.Attendance != 1 {
		t.Errorf("unexpected attendance %d", visit.Attendance)
	}
}

func TestLastVisitInfoEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty phone", func(t *testing.T) {
		t.Parallel()
		c := New(Config{CompanyID: 1, PartnerToken: "pt", UserToken: "ut"})
		defer c.Close()
		if _, err := c.LastVisitInfo(context.Background(), ""); !errors.Is(err, ErrEmptyPhone) {
			t.Errorf("expected ErrEmptyPhone, got %v", err)
		}
	})

	t.Run("no visit records", func(t *testing.T) {
		t.Parallel()
		clients := []map[string]any{{"id": 101, "phone": "79226611768"}}
		srv := httptest.NewServer(clientSearchHandler(t, clients, map[string]any{"records": []any{}}))
		defer srv.Close()

		c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})
		visit, err := c.LastVisitInfo(context.Background(), "79226611768")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if visit != nil {
			t.Errorf("expected nil, got %v", visit)
		}
	})

	t.Run("no visits with staff info", func(t *testing.T) {
		t.Parallel()
		clients := []map[string]any{{"id": 101, "phone": "79226611768"}}
		visits := map[string]any{
			"records": []any{
				map[string]any{"id": float64(1), "date": "2024-05-01", "staff": nil},
			},
		}
		srv := httptest.NewServer(clientSearchHandler(t, clients, visits))
		defer srv.Close()

		c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})
		visit, err := c.LastVisitInfo(context.Background(), "79226611768")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if visit != nil {
			t.Errorf("expected nil, got %v", visit)
		}
	})
}

func TestLatestVisitWithStaffSortsMissingDatesLast(t *testing.T) {
	t.Parallel()

	records := []any{
		map[string]any{
			"id":    float64(1),
			"staff": map[string]any{"id": float64(3), "name": "Nina"},
		},
		map[string]any{
			"id":    float64(2),
			"date":  "2023-06-01 09:00:00",
			"staff": map[string]any{"id": float64(4), "name": "Vera"},
		},
	}

	visit := latestVisitWithStaff(records)
	if visit == nil || visit.StaffID != 4 {
		t.Fatalf("expected dated record to win, got %+v", visit)
	}
}

func TestClientVisitsRequiresReference(t *testing.T) {
	t.Parallel()

	c := New(Config{CompanyID: 1, PartnerToken: "pt", UserToken: "ut"})
	defer c.Close()

	if _, err := c.ClientVisits(context.Background(), VisitsQuery{}); !errors.Is(err, ErrMissingClientRef) {
		t.Errorf("expected ErrMissingClientRef, got %v", err)
	}
}

func TestClientVisitsPayload(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"success": true, "data": {"records": []}, "meta": []}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})

	_, err := c.ClientVisits(context.Background(), VisitsQuery{ClientID: 101, FromDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if asInt64(payload["client_id"]) != 101 {
		t.Errorf("expected client_id 101, got %v", payload["client_id"])
	}
	if payload["client_phone"] != nil {
		t.Errorf("expected explicit null client_phone, got %v", payload["client_phone"])
	}
	if payload["from"] != "2024-01-01" {
		t.Errorf("expected from filter, got %v", payload["from"])
	}
	if asInt64(payload["include_staff"]) != 1 || asInt64(payload["include_services"]) != 1 {
		t.Errorf("expected include flags set, got %v", payload)
	}
}

func TestSearchClientsDefaults(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"success": true, "data": [], "meta": []}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Config{UserToken: "user-token"})

	if _, err := c.SearchClients(context.Background(), SearchQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if asInt64(payload["page"]) != 1 || asInt64(payload["page_size"]) != 25 {
		t.Errorf("expected default pagination, got %v", payload)
	}
	if payload["operation"] != "AND" {
		t.Errorf("expected AND operation, got %v", payload["operation"])
	}
	fields, _ := payload["fields"].([]any)
	if len(fields) != len(defaultSearchFields) {
		t.Errorf("expected %d default fields, got %d", len(defaultSearchFields), len(fields))
	}
}
