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
	"sort"

	"github.com/avolkov/salonsync/internal/logging"
)

// defaultSearchFields is the field set returned by client searches when the
// caller does not request specific fields.
var defaultSearchFields = []string{
	"id", "name", "surname", "patronymic", "phone", "email",
	"card", "visits_count", "spent", "balance", "discount",
	"sex", "birth_date", "created", "last_visit_date",
}

// SearchQuery configures a client search.
type SearchQuery struct {
	// Filters are platform filter objects, passed through unmodified.
	Filters []map[string]any

	// Page and PageSize paginate the result. Defaults: page 1, size 25.
	Page     int
	PageSize int

	// Fields selects which client attributes to return. Defaults to
	// defaultSearchFields.
	Fields []string

	// OrderBy and OrderByDirection sort the result when OrderBy is set.
	// Direction defaults to ASC.
	OrderBy          string
	OrderByDirection string
}

// FindCriteria are the common search criteria FindClient translates into
// platform filters. Each set field becomes one partial-match filter.
type FindCriteria struct {
	Name  string
	Phone string
	Email string

	Page     int
	PageSize int
}

// VisitsQuery configures a visit-history search. Exactly one of Phone or
// ClientID must be set; ClientID wins when both are.
type VisitsQuery struct {
	Phone    string
	ClientID int64

	// FromDate and ToDate bound the history (ISO dates, YYYY-MM-DD).
	FromDate string
	ToDate   string

	// FromCursor and ToCursor are pagination cursors from a previous
	// response's meta.
	FromCursor string
	ToCursor   string

	// ExcludeServices and ExcludeStaff drop the corresponding detail blocks
	// from the response. Both are included by default.
	ExcludeServices bool
	ExcludeStaff    bool
}

// LastVisit is the derived record LastVisitInfo produces: the staff member
// who served the client's most recent visit.
type LastVisit struct {
	StaffID        int64  `json:"id"`
	StaffName      string `json:"name"`
	Specialization string `json:"specialization"`
	LastVisitDate  string `json:"last_visit_date"`
	LastVisitID    int64  `json:"last_visit_id"`
	Attendance     int64  `json:"attendance"`
}

// GetClient returns detailed client information by id
// (GET /client/{company_id}/{client_id}). Requires the user token.
func (c *Client) GetClient(ctx context.Context, clientID int64) (*Envelope, error) {
	raw, err := c.request(ctx, http.MethodGet, c.companySubPath("client", clientID), nil, nil, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// SearchClients searches the company's client base
// (POST /company/{company_id}/clients/search). Requires the user token.
func (c *Client) SearchClients(ctx context.Context, query SearchQuery) (*Envelope, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	fields := query.Fields
	if fields == nil {
		fields = defaultSearchFields
	}

	payload := map[string]any{
		"page":      page,
		"page_size": pageSize,
		"operation": "AND",
		"fields":    fields,
	}
	if len(query.Filters) > 0 {
		payload["filters"] = query.Filters
	}
	if query.OrderBy != "" {
		direction := query.OrderByDirection
		if direction == "" {
			direction = "ASC"
		}
		payload["order_by"] = query.OrderBy
		payload["order_by_direction"] = direction
	}

	path := fmt.Sprintf("/company/%d/clients/search", c.companyID)
	raw, err := c.request(ctx, http.MethodPost, path, nil, payload, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// FindClient searches clients by common criteria, translating each set field
// into a partial-match filter.
func (c *Client) FindClient(ctx context.Context, criteria FindCriteria) (*Envelope, error) {
	var filters []map[string]any
	if criteria.Name != "" {
		filters = append(filters, map[string]any{"name": criteria.Name})
	}
	if criteria.Phone != "" {
		filters = append(filters, map[string]any{"phone": criteria.Phone})
	}
	if criteria.Email != "" {
		filters = append(filters, map[string]any{"email": criteria.Email})
	}
	return c.SearchClients(ctx, SearchQuery{
		Filters:  filters,
		Page:     criteria.Page,
		PageSize: criteria.PageSize,
	})
}

// FindClientByPhone locates one client by phone number in any format.
//
// The number is normalized to digits, its last seven digits are used as the
// search key to pull candidates, and each candidate's normalized phone is
// matched exactly or by suffix. Multiple matches resolve to the first in API
// response order, with the ambiguity logged. No match returns (nil, nil).
func (c *Client) FindClientByPhone(ctx context.Context, phone string) (map[string]any, error) {
	clean, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	result, err := c.FindClient(ctx, FindCriteria{Phone: phoneSearchKey(clean)})
	if err != nil {
		return nil, err
	}

	candidates := result.DataList()
	if len(candidates) == 0 {
		logging.Warn().Str("phone", clean).Msg("No client found with phone")
		return nil, nil
	}

	var matches []map[string]any
	for _, raw := range candidates {
		candidate, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		candidatePhone := asString(candidate["phone"])
		cleanCandidate := ""
		if candidatePhone != "" {
			if cleanCandidate, err = NormalizePhone(candidatePhone); err != nil {
				cleanCandidate = ""
			}
		}
		if phoneMatches(cleanCandidate, clean) {
			matches = append(matches, candidate)
		}
	}

	if len(matches) == 0 {
		logging.Warn().Str("phone", clean).Msg("No exact phone match among candidates")
		return nil, nil
	}
	if len(matches) > 1 {
		logging.Info().
			Str("phone", clean).
			Int("matches", len(matches)).
			Msg("Multiple clients match phone, using first")
	}
	return matches[0], nil
}

// ClientVisits returns the visit history for one client
// (POST /company/{company_id}/clients/visits/search). Requires the user
// token. Returns ErrMissingClientRef when the query names neither a phone nor
// a client id.
func (c *Client) ClientVisits(ctx context.Context, query VisitsQuery) (*Envelope, error) {
	if query.Phone == "" && query.ClientID == 0 {
		return nil, ErrMissingClientRef
	}

	// The endpoint expects explicit nulls for the unused identifier.
	payload := map[string]any{
		"client_id":    nil,
		"client_phone": nil,
	}
	if query.ClientID != 0 {
		payload["client_id"] = query.ClientID
	} else {
		clean, err := NormalizePhone(query.Phone)
		if err != nil {
			return nil, err
		}
		payload["client_phone"] = clean
	}

	if query.FromDate != "" {
		payload["from"] = query.FromDate
	}
	if query.ToDate != "" {
		payload["to"] = query.ToDate
	}
	if query.FromCursor != "" {
		payload["from_cursor"] = query.FromCursor
	}
	if query.ToCursor != "" {
		payload["to_cursor"] = query.ToCursor
	}
	if !query.ExcludeServices {
		payload["include_services"] = 1
	}
	if !query.ExcludeStaff {
		payload["include_staff"] = 1
	}

	path := fmt.Sprintf("/company/%d/clients/visits/search", c.companyID)
	raw, err := c.request(ctx, http.MethodPost, path, url.Values{}, payload, true)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// LastVisitInfo resolves the staff member who served a client's most recent
// visit. The client is located by phone, their visit history fetched with
// staff details, the records sorted newest first (missing dates sort last),
// and the first record carrying both a staff id and a staff name wins.
// Returns (nil, nil) when the client or a qualifying visit does not exist.
func (c *Client) LastVisitInfo(ctx context.Context, phone string) (*LastVisit, error) {
	if phone == "" {
		return nil, ErrEmptyPhone
	}

	client, err := c.FindClientByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}
	clientID := asInt64(client["id"])

	visits, err := c.ClientVisits(ctx, VisitsQuery{ClientID: clientID})
	if err != nil {
		return nil, err
	}

	records, _ := visits.DataMap()["records"].([]any)
	if len(records) == 0 {
		logging.Info().Int64("client_id", clientID).Msg("No visit records found")
		return nil, nil
	}

	if visit := latestVisitWithStaff(records); visit != nil {
		return visit, nil
	}
	logging.Info().Int64("client_id", clientID).Msg("No visits with staff information found")
	return nil, nil
}

// latestVisitWithStaff sorts visit records by date descending (lexicographic
// on the platform's sortable date strings, with missing dates last) and
// returns the first record whose staff block has both an id and a name.
func latestVisitWithStaff(records []any) *LastVisit {
	sorted := make([]any, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return recordDate(sorted[i]) > recordDate(sorted[j])
	})

	for _, raw := range sorted {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		staff, ok := record["staff"].(map[string]any)
		if !ok {
			continue
		}
		staffID := asInt64(staff["id"])
		staffName := asString(staff["name"])
		if staffID == 0 || staffName == "" {
			continue
		}
		return &LastVisit{
			StaffID:        staffID,
			StaffName:      staffName,
			Specialization: asString(staff["specialization"]),
			LastVisitDate:  recordDate(record),
			LastVisitID:    asInt64(record["id"]),
			Attendance:     asInt64(record["attendance"]),
		}
	}
	return nil
}

func recordDate(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		return asString(m["date"])
	}
	return ""
}
