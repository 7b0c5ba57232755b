// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ServicesOptions filters the bookable-services listing.
type ServicesOptions struct {
	// StaffID keeps only services the given staff member performs.
	StaffID int64

	// DateTime keeps only services bookable at the given ISO datetime.
	DateTime string
}

// CategoriesOptions configures a service-category listing.
type CategoriesOptions struct {
	// IncludeServices nests each category's services into the response.
	IncludeServices bool

	// CompanyID overrides the client's company scope when non-zero.
	CompanyID int64
}

// ListServices returns the bookable services of the company
// (GET /book_services/{company_id}). The endpoint nests its list under
// data.services; it is hoisted so Data is the services list directly. A
// categories sibling in the response is kept on the envelope, saving callers
// a separate category fetch that would need the user token.
func (c *Client) ListServices(ctx context.Context, opts ServicesOptions) (*Envelope, error) {
	params := url.Values{}
	if opts.StaffID != 0 {
		params.Set("staff_id", strconv.FormatInt(opts.StaffID, 10))
	}
	if opts.DateTime != "" {
		params.Set("datetime", opts.DateTime)
	}

	raw, err := c.request(ctx, http.MethodGet, c.companyPath("book_services"), params, nil, false)
	if err != nil {
		return nil, err
	}
	return hoistServices(raw, false), nil
}

// GetService returns detailed information for one service
// (GET /services/{company_id}/{service_id}).
func (c *Client) GetService(ctx context.Context, serviceID int64) (*Envelope, error) {
	raw, err := c.request(ctx, http.MethodGet, c.companySubPath("services", serviceID), nil, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// ListCompanyServices returns the company's full service list with
// category_id and staff assignments (GET /company/{company_id}/services).
// Requires the user token.
func (c *Client) ListCompanyServices(ctx context.Context) (*Envelope, error) {
	path := fmt.Sprintf("/company/%d/services", c.companyID)
	raw, err := c.request(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// ListServiceCategories returns the company's service categories
// (GET /company/{company_id}/service_categories). Requires the user token.
func (c *Client) ListServiceCategories(ctx context.Context, opts CategoriesOptions) (*Envelope, error) {
	companyID := opts.CompanyID
	if companyID == 0 {
		companyID = c.companyID
	}
	params := url.Values{}
	if opts.IncludeServices {
		params.Set("include", "services")
	}

	path := fmt.Sprintf("/company/%d/service_categories", companyID)
	raw, err := c.request(ctx, http.MethodGet, path, params, nil, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// ListChainServiceCategories returns service categories across an entire
// chain (GET /chain/{chain_id}/service_categories). Requires the user token.
func (c *Client) ListChainServiceCategories(ctx context.Context, chainID int64, includeServices bool) (*Envelope, error) {
	params := url.Values{}
	if includeServices {
		params.Set("include", "services")
	}

	path := fmt.Sprintf("/chain/%d/service_categories", chainID)
	raw, err := c.request(ctx, http.MethodGet, path, params, nil, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// ListServicesByStaff returns the services one staff member can perform
// (GET /book_services/{company_id}?staff_id=...). The nested services list is
// hoisted and the sibling categories list is kept on the envelope.
func (c *Client) ListServicesByStaff(ctx context.Context, staffID int64, dateTime string) (*Envelope, error) {
	params := url.Values{}
	params.Set("staff_id", strconv.FormatInt(staffID, 10))
	if dateTime != "" {
		params.Set("datetime", dateTime)
	}

	raw, err := c.request(ctx, http.MethodGet, c.companyPath("book_services"), params, nil, false)
	if err != nil {
		return nil, err
	}
	return hoistServices(raw, true), nil
}
