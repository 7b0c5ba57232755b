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

// BranchesOptions filters the branch listing.
type BranchesOptions struct {
	// IncludeDisabled keeps branches flagged disabled by the platform. The
	// default (false) filters them out.
	IncludeDisabled bool

	// GroupID restricts the listing to one chain/group.
	GroupID int64

	// MyCompanies restricts the listing to companies owned by the
	// authenticated user.
	MyCompanies bool
}

// ListBranches returns the branches (companies) visible to the partner
// token. Disabled branches are filtered out unless opts.IncludeDisabled is
// set. The operation is read-only and idempotent.
func (c *Client) ListBranches(ctx context.Context, opts BranchesOptions) (*Envelope, error) {
	params := url.Values{}
	if opts.GroupID != 0 {
		params.Set("group_id", strconv.FormatInt(opts.GroupID, 10))
	}
	if opts.MyCompanies {
		params.Set("my", "1")
	}

	raw, err := c.request(ctx, http.MethodGet, "/companies", params, nil, false)
	if err != nil {
		return nil, err
	}

	env := normalizeEnvelope(raw)
	if !opts.IncludeDisabled {
		if list := env.DataList(); list != nil {
			env.Data = filterDisabled(list)
		}
	}
	return env, nil
}

// filterDisabled drops entries whose disabled flag is truthy.
func filterDisabled(branches []any) []any {
	active := make([]any, 0, len(branches))
	for _, b := range branches {
		m, ok := b.(map[string]any)
		if ok {
			if disabled, ok := m["disabled"].(bool); ok && disabled {
				continue
			}
		}
		active = append(active, b)
	}
	return active
}
