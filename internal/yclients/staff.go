// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// StaffOptions filters the bookable-staff listing.
type StaffOptions struct {
	// ServiceIDs keeps only staff who can perform all the given services.
	ServiceIDs []int64

	// DateTime keeps only staff available at the given ISO datetime.
	DateTime string
}

// ListStaff returns the bookable staff of the company, optionally filtered
// by services or availability (GET /book_staff/{company_id}).
func (c *Client) ListStaff(ctx context.Context, opts StaffOptions) (*Envelope, error) {
	params := url.Values{}
	for _, sid := range opts.ServiceIDs {
		params.Add("service_ids[]", strconv.FormatInt(sid, 10))
	}
	if opts.DateTime != "" {
		params.Set("datetime", opts.DateTime)
	}

	raw, err := c.request(ctx, http.MethodGet, c.companyPath("book_staff"), params, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// GetStaff returns detailed information for one staff member
// (GET /staff/{company_id}/{staff_id}).
func (c *Client) GetStaff(ctx context.Context, staffID int64) (*Envelope, error) {
	raw, err := c.request(ctx, http.MethodGet, c.companySubPath("staff", staffID), nil, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}
