// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

/*
client.go - Core YCLIENTS API Client

This file provides the core Client struct and HTTP communication layer for
the YCLIENTS REST API (v2).

Client Features:
  - Dual-token authorization (partner token, optionally layered user token)
  - Automatic HTTP 429 rate limit handling with exponential backoff
  - Optional client-side request throttling
  - Single unified error type (APIError) at the wrapper boundary
  - Context support for cancellation and timeouts

Related Files:
  - branches.go:  company/branch listing
  - staff.go:     staff endpoints
  - services.go:  service and category endpoints
  - catalog.go:   service-catalog assembly
  - clients.go:   client search, phone matching, visit history
  - booking.go:   booking and availability endpoints
  - bookform.go:  booking-form salon discovery
*/
package yclients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/avolkov/salonsync/internal/logging"
	"github.com/avolkov/salonsync/internal/metrics"
)

const (
	// DefaultBaseURL is the production YCLIENTS API endpoint.
	DefaultBaseURL = "https://api.yclients.com/api/v1"

	acceptHeader    = "application/vnd.yclients.v2+json"
	contentTypeJSON = "application/json"

	defaultTimeout       = 10 * time.Second
	defaultBackoffFactor = 0.5

	// maxErrorBodySize caps how much of an error response body is read for
	// diagnostics, preventing unbounded allocation on large error pages.
	maxErrorBodySize = 64 * 1024
)

// Config configures a Client instance. CompanyID and PartnerToken are
// required; everything else has a default.
type Config struct {
	// CompanyID is the salon/company this client is scoped to.
	CompanyID int64

	// PartnerToken authenticates every call.
	PartnerToken string

	// UserToken is the elevated credential required by company- and
	// client-scoped endpoints. Optional; operations that need it fail with
	// ErrNoUserToken when it is absent.
	UserToken string

	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string

	// Timeout bounds a single HTTP round trip. Default: 10s.
	Timeout time.Duration

	// MaxRetries caps additional attempts after an HTTP 429. Zero means a
	// rate-limited request fails immediately.
	MaxRetries int

	// BackoffFactor is the base backoff in seconds: the n-th retry sleeps
	// backoff_factor * 2^(n-1) seconds. Default: 0.5.
	BackoffFactor float64

	// RequestsPerSecond throttles outgoing requests. Zero disables
	// throttling.
	RequestsPerSecond float64

	// Proxy routes all requests through the given proxy when set.
	Proxy *url.URL
}

// Client is a synchronous wrapper over the YCLIENTS REST API, scoped to one
// company. It is safe for concurrent use, but each operation blocks for the
// duration of one HTTP round trip plus any 429 backoff waits. Callers own the
// instance lifecycle: construct with New, release with Close.
type Client struct {
	companyID     int64
	partnerToken  string
	userToken     string
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	backoffFactor float64
	limiter       *rate.Limiter

	// sleep is the retry wait; replaced in tests to observe backoff timing.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from the given configuration, applying defaults for
// unset optional fields.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := cfg.BackoffFactor
	if backoff <= 0 {
		backoff = defaultBackoffFactor
	}

	transport := http.DefaultTransport
	if cfg.Proxy != nil {
		transport = &http.Transport{Proxy: http.ProxyURL(cfg.Proxy)}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		companyID:    cfg.CompanyID,
		partnerToken: cfg.PartnerToken,
		userToken:    cfg.UserToken,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxRetries:    cfg.MaxRetries,
		backoffFactor: backoff,
		limiter:       limiter,
		sleep:         sleepContext,
	}
}

// CompanyID returns the company this client is scoped to.
func (c *Client) CompanyID() int64 { return c.companyID }

// Close releases the underlying connection pool. The client must not be used
// after Close.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// authorization translates the credential set into the Authorization header
// value. YCLIENTS layers the user token onto the partner bearer with a
// comma-joined scheme; this is the single place that quirk lives.
func (c *Client) authorization(elevated bool) string {
	if elevated && c.userToken != "" {
		return fmt.Sprintf("Bearer %s, User %s", c.partnerToken, c.userToken)
	}
	return "Bearer " + c.partnerToken
}

// companyPath builds a company-scoped path: /{resource}/{company_id}.
func (c *Client) companyPath(resource string) string {
	return fmt.Sprintf("/%s/%d", resource, c.companyID)
}

// companySubPath builds /{resource}/{company_id}/{sub_id}.
func (c *Client) companySubPath(resource string, subID int64) string {
	return fmt.Sprintf("/%s/%d/%d", resource, c.companyID, subID)
}

// request issues one logical API call and returns the decoded JSON body.
//
// HTTP 429 responses are retried with exponential backoff (backoff_factor,
// x2, x4, ...) up to maxRetries additional attempts; after exhaustion the
// most recent 429 surfaces as an APIError. A 2xx body that is a mapping with
// an explicit success:false raises an APIError carrying the platform's own
// error payload. Other statuses and network failures map to an APIError as
// well. Elevated operations fail with ErrNoUserToken before
// any network activity when no user token is configured.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any, elevated bool) (any, error) {
	if elevated && c.userToken == "" {
		return nil, ErrNoUserToken
	}

	endpoint := endpointLabel(path)
	timer := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(timer).Seconds())
	}()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request body: %w", endpoint, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reqBody io.Reader = http.NoBody
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
		}
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("Content-Type", contentTypeJSON)
		req.Header.Set("Authorization", c.authorization(elevated))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return nil, &APIError{Endpoint: endpoint, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			errBody := readBodyForError(resp.Body)
			_ = resp.Body.Close()

			if attempt >= c.maxRetries {
				metrics.APIRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
				return nil, &APIError{
					Endpoint:   endpoint,
					StatusCode: http.StatusTooManyRequests,
					Body:       string(errBody),
				}
			}

			delay := c.backoffDelay(attempt)
			logging.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Int("max_retries", c.maxRetries).
				Dur("delay", delay).
				Msg("Rate limited (429), retrying")
			metrics.APIRetriesTotal.Inc()

			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return c.finishRequest(endpoint, resp)
	}
}

// backoffDelay computes the exponential backoff for a retry: the n-th retry
// (attempt index n-1) waits backoff_factor * 2^(n-1) seconds.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return time.Duration(c.backoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
}

// finishRequest consumes a terminal (non-429) response and maps it to a
// decoded body or an APIError.
func (c *Client) finishRequest(endpoint string, resp *http.Response) (any, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{Endpoint: endpoint, Err: err}
	}

	// The platform returns empty bodies on some write endpoints; treat them
	// as an empty mapping.
	if len(bytes.TrimSpace(raw)) == 0 {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "success").Inc()
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "api_error").Inc()
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("invalid JSON: %v", err),
		}
	}

	if m, ok := decoded.(map[string]any); ok {
		if flag, ok := m["success"].(bool); ok && !flag {
			payload := m["meta"]
			if payload == nil {
				payload = m
			}
			metrics.APIRequestsTotal.WithLabelValues(endpoint, "api_error").Inc()
			return nil, &APIError{Endpoint: endpoint, Payload: payload}
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	return decoded, nil
}

// endpointLabel extracts the leading path segment for logs and metric labels.
func endpointLabel(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}

// sleepContext waits for the given duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readBodyForError reads a response body for error reporting, capped at
// maxErrorBodySize.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
