// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import (
	"errors"
	"fmt"
)

// Validation errors are raised before any network call is attempted and are
// never retried.
var (
	// ErrNoUserToken is returned when an operation requiring elevated access
	// is called on a client constructed without a user token.
	ErrNoUserToken = errors.New("yclients: operation requires a user token")

	// ErrNoDigits is returned when a phone number contains no digits.
	ErrNoDigits = errors.New("yclients: phone number must contain at least one digit")

	// ErrEmptyPhone is returned when a required phone number is empty.
	ErrEmptyPhone = errors.New("yclients: phone number is required")

	// ErrMissingClientRef is returned when neither a phone number nor a
	// client id is provided for a visit-history lookup.
	ErrMissingClientRef = errors.New("yclients: either phone or client id must be provided")
)

// APIError is the single error kind at the wrapper boundary. It carries one
// of three failure shapes:
//
//   - a network-level failure (Err set, StatusCode zero)
//   - an HTTP error response (StatusCode and Body set)
//   - a platform-reported failure: an otherwise-2xx response whose body
//     carries success:false (Payload set to the platform's own error payload)
type APIError struct {
	// Endpoint is the first path segment of the request, for diagnostics.
	Endpoint string

	// StatusCode is the HTTP status of a non-2xx response, 0 otherwise.
	StatusCode int

	// Body is the response text of a non-2xx response, truncated.
	Body string

	// Payload is the platform's structured error payload when the response
	// was 2xx but carried success:false.
	Payload any

	// Err is the underlying network error, if any.
	Err error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("yclients: %s: network error: %v", e.Endpoint, e.Err)
	case e.Payload != nil:
		return fmt.Sprintf("yclients: %s: api error: %v", e.Endpoint, e.Payload)
	default:
		return fmt.Sprintf("yclients: %s: error %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
}

func (e *APIError) Unwrap() error { return e.Err }
