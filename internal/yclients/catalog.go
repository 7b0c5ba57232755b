// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avolkov/salonsync/internal/logging"
)

// ServiceCatalog is the assembled category/service tree for one company.
type ServiceCatalog struct {
	CompanyID       int64             `json:"company_id"`
	CompanyTitle    string            `json:"company_title"`
	Categories      []CatalogCategory `json:"categories"`
	TotalCategories int               `json:"total_categories"`
	TotalServices   int               `json:"total_services"`
}

// CatalogCategory is one category with its attached services. Services is an
// empty slice, never nil, for categories without services.
type CatalogCategory struct {
	CategoryID int64            `json:"category_id"`
	Title      string           `json:"title"`
	Services   []CatalogService `json:"services"`
}

// CatalogService is the catalog projection of one service.
type CatalogService struct {
	ServiceID       int64   `json:"service_id"`
	Title           string  `json:"title"`
	PriceMin        float64 `json:"price_min"`
	PriceMax        float64 `json:"price_max"`
	DurationSeconds int64   `json:"duration_seconds"`
	Staff           any     `json:"staff"`
}

// BuildServiceCatalog assembles the complete service catalog for a company
// from two fetches: the category list and the full service list. companyID
// zero means the client's own company. Requires the user token.
func (c *Client) BuildServiceCatalog(ctx context.Context, companyID int64) (*ServiceCatalog, error) {
	if companyID == 0 {
		companyID = c.companyID
	}

	categories, err := c.ListServiceCategories(ctx, CategoriesOptions{
		IncludeServices: true,
		CompanyID:       companyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service categories: %w", err)
	}

	var services *Envelope
	if companyID == c.companyID {
		services, err = c.ListCompanyServices(ctx)
	} else {
		var raw any
		raw, err = c.request(ctx, http.MethodGet, fmt.Sprintf("/company/%d/services", companyID), nil, nil, true)
		if err == nil {
			services = normalizeEnvelope(raw)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company services: %w", err)
	}

	catalog := assembleCatalog(companyID, categories.DataList(), services.DataList())
	logging.Debug().
		Int64("company_id", companyID).
		Int("categories", catalog.TotalCategories).
		Int("services", catalog.TotalServices).
		Msg("Assembled service catalog")
	return catalog, nil
}

// assembleCatalog groups a flat service list by category_id and attaches each
// group to its category. Services without a category_id (absent or zero)
// belong to no category and are excluded from the tree; TotalServices still
// counts them.
func assembleCatalog(companyID int64, categories, services []any) *ServiceCatalog {
	byCategory := groupServicesByCategory(services)

	cats := make([]CatalogCategory, 0, len(categories))
	for _, raw := range categories {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id := asInt64(m["id"])
		group := byCategory[id]
		if group == nil {
			group = []CatalogService{}
		}
		cats = append(cats, CatalogCategory{
			CategoryID: id,
			Title:      asString(m["title"]),
			Services:   group,
		})
	}

	return &ServiceCatalog{
		CompanyID:       companyID,
		CompanyTitle:    fmt.Sprintf("Company %d", companyID),
		Categories:      cats,
		TotalCategories: len(cats),
		TotalServices:   len(services),
	}
}

// groupServicesByCategory buckets services by their category_id, dropping
// entries whose category_id is missing or zero.
func groupServicesByCategory(services []any) map[int64][]CatalogService {
	grouped := make(map[int64][]CatalogService)
	for _, raw := range services {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		categoryID := asInt64(m["category_id"])
		if categoryID == 0 {
			continue
		}
		grouped[categoryID] = append(grouped[categoryID], CatalogService{
			ServiceID:       asInt64(m["id"]),
			Title:           asString(m["title"]),
			PriceMin:        asFloat64(m["price_min"]),
			PriceMax:        asFloat64(m["price_max"]),
			DurationSeconds: asInt64(m["seance_length"]),
			Staff:           m["staff"],
		})
	}
	return grouped
}
