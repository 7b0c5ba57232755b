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

// BookingRequest describes one booking submission. Appointments carries the
// platform's appointment objects (service ids, staff id, datetime) verbatim.
type BookingRequest struct {
	Phone        string
	Fullname     string
	Email        string
	Appointments []map[string]any

	// Code is the SMS confirmation code when the company requires one.
	Code string

	NotifyBySMS   int
	NotifyByEmail int
	Comment       string
	APIID         string
	CustomFields  map[string]any
}

// CancelOptions configures an appointment cancellation.
type CancelOptions struct {
	IncludeConsumables         bool
	IncludeFinanceTransactions bool
}

// AvailabilityOptions filters the bookable-days listing.
type AvailabilityOptions struct {
	ServiceIDs []int64
	StaffID    int64
	Date       string
}

// BookAppointment submits a booking (POST /book_record/{company_id}).
func (c *Client) BookAppointment(ctx context.Context, req BookingRequest) (*Envelope, error) {
	payload := map[string]any{
		"phone":        req.Phone,
		"fullname":     req.Fullname,
		"email":        req.Email,
		"appointments": req.Appointments,
	}
	if req.Code != "" {
		payload["code"] = req.Code
	}
	if req.NotifyBySMS != 0 {
		payload["notify_by_sms"] = req.NotifyBySMS
	}
	if req.NotifyByEmail != 0 {
		payload["notify_by_email"] = req.NotifyByEmail
	}
	if req.Comment != "" {
		payload["comment"] = req.Comment
	}
	if req.APIID != "" {
		payload["api_id"] = req.APIID
	}
	if req.CustomFields != nil {
		payload["custom_fields"] = req.CustomFields
	}

	raw, err := c.request(ctx, http.MethodPost, c.companyPath("book_record"), nil, payload, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// CancelAppointment cancels a booked record
// (DELETE /record/{company_id}/{record_id}).
func (c *Client) CancelAppointment(ctx context.Context, recordID int64, opts CancelOptions) error {
	params := url.Values{}
	if opts.IncludeConsumables {
		params.Set("include_consumables", "1")
	}
	if opts.IncludeFinanceTransactions {
		params.Set("include_finance_transactions", "1")
	}

	_, err := c.request(ctx, http.MethodDelete, c.companySubPath("record", recordID), params, nil, false)
	return err
}

// RescheduleAppointment moves a booked record to a new datetime
// (PUT /book_record/{company_id}/{record_id}).
func (c *Client) RescheduleAppointment(ctx context.Context, recordID int64, newDateTime, comment string) (*Envelope, error) {
	payload := map[string]any{"datetime": newDateTime}
	if comment != "" {
		payload["comment"] = comment
	}

	raw, err := c.request(ctx, http.MethodPut, c.companySubPath("book_record", recordID), nil, payload, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// AvailableDays returns the dates with open booking slots
// (GET /book_dates/{company_id}).
func (c *Client) AvailableDays(ctx context.Context, opts AvailabilityOptions) (*Envelope, error) {
	params := url.Values{}
	for _, sid := range opts.ServiceIDs {
		params.Add("service_ids[]", strconv.FormatInt(sid, 10))
	}
	if opts.StaffID != 0 {
		params.Set("staff_id", strconv.FormatInt(opts.StaffID, 10))
	}
	if opts.Date != "" {
		params.Set("date", opts.Date)
	}

	raw, err := c.request(ctx, http.MethodGet, c.companyPath("book_dates"), params, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}

// AvailableTimes returns the open time slots for one staff member on one
// date (GET /book_times/{company_id}/{staff_id}/{date}).
func (c *Client) AvailableTimes(ctx context.Context, staffID int64, dateISO string, serviceIDs []int64) (*Envelope, error) {
	params := url.Values{}
	for _, sid := range serviceIDs {
		params.Add("service_ids[]", strconv.FormatInt(sid, 10))
	}

	path := fmt.Sprintf("/book_times/%d/%d/%s", c.companyID, staffID, dateISO)
	raw, err := c.request(ctx, http.MethodGet, path, params, nil, false)
	if err != nil {
		return nil, err
	}
	return normalizeEnvelope(raw), nil
}
