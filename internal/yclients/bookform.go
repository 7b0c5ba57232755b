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

// GetCompany returns public company information for any salon id
// (GET /company/{company_id}/). Requires the user token.
func (c *Client) GetCompany(ctx context.Context, companyID int64) (*Envelope, error) {
	if companyID == 0 {
		companyID = c.companyID
	}
	path := fmt.Sprintf("/company/%d/", companyID)
	raw, err := c.request(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// GetBookForm returns the online booking form configuration
// (GET /bookform/{form_id}).
func (c *Client) GetBookForm(ctx context.Context, formID int64) (*Envelope, error) {
	path := fmt.Sprintf("/bookform/%d", formID)
	raw, err := c.request(ctx, http.MethodGet, path, nil, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// FetchFormSalonIDs collects the unique salon ids reachable through the
// given booking forms, reading data.online_sales_links[].salon_ids from each
// form. IDs keep first-seen order. A form that fails to fetch is logged and
// skipped; the result covers the forms that succeeded.
func (c *Client) FetchFormSalonIDs(ctx context.Context, formIDs []int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64

	for _, formID := range formIDs {
		form, err := c.GetBookForm(ctx, formID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn().Int64("form_id", formID).Err(err).Msg("Failed to fetch booking form, skipping")
			continue
		}

		links, _ := form.DataMap()["online_sales_links"].([]any)
		for _, rawLink := range links {
			link, ok := rawLink.(map[string]any)
			if !ok {
				continue
			}
			salonIDs, _ := link["salon_ids"].([]any)
			for _, rawID := range salonIDs {
				id := asInt64(rawID)
				if id == 0 {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	logging.Info().Int("salons", len(ids)).Int("forms", len(formIDs)).Msg("Collected salon ids from booking forms")
	return ids, nil
}
