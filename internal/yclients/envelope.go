// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

// Envelope is the normalized response shape every operation returns. The
// remote platform nests its payloads inconsistently across endpoints, so each
// operation reshapes its own response; callers always see {success, data,
// meta} with Data being the semantically relevant list or object.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`

	// Categories is the sibling categories list the book_services endpoint
	// returns alongside the hoisted services, when the response carries one.
	// ListServicesByStaff additionally defaults it to an empty list.
	Categories any `json:"categories,omitempty"`

	Meta any `json:"meta"`
}

// DataList returns Data as a list, or nil when it is not one.
func (e *Envelope) DataList() []any {
	if e == nil {
		return nil
	}
	list, _ := e.Data.([]any)
	return list
}

// DataMap returns Data as an object, or nil when it is not one.
func (e *Envelope) DataMap() map[string]any {
	if e == nil {
		return nil
	}
	m, _ := e.Data.(map[string]any)
	return m
}

// normalizeEnvelope reshapes a decoded response body into an Envelope.
// Handles the three shapes the platform emits: a standard {success, data,
// meta} mapping, a bare list, and a mapping without a data key (which is
// passed through as Data unchanged, best effort).
func normalizeEnvelope(raw any) *Envelope {
	switch v := raw.(type) {
	case map[string]any:
		if data, ok := v["data"]; ok {
			return &Envelope{Success: successFlag(v), Data: data, Meta: v["meta"]}
		}
		return &Envelope{Success: successFlag(v), Data: v, Meta: v["meta"]}
	case []any:
		return &Envelope{Success: true, Data: v}
	case nil:
		return &Envelope{Success: true, Data: map[string]any{}}
	default:
		return &Envelope{Success: true, Data: v}
	}
}

// hoistServices reshapes a book_services response. That endpoint nests the
// services list under data.services; the list is hoisted to be Data directly,
// preserving success and meta. A data.categories sibling is retained on the
// envelope when present; with defaultCategories an absent sibling becomes an
// empty list instead of nil, so callers can tell "none" from "not asked".
// Responses without the nested shape pass through normalizeEnvelope untouched.
func hoistServices(raw any, defaultCategories bool) *Envelope {
	m, ok := raw.(map[string]any)
	if !ok {
		return normalizeEnvelope(raw)
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		return normalizeEnvelope(raw)
	}
	services, ok := data["services"]
	if !ok {
		return normalizeEnvelope(raw)
	}

	env := &Envelope{Success: successFlag(m), Data: services, Meta: m["meta"]}
	if cats, ok := data["categories"]; ok {
		env.Categories = cats
	} else if defaultCategories {
		env.Categories = []any{}
	}
	return env
}

// successFlag reads an explicit success flag from a response mapping,
// defaulting to true when absent.
func successFlag(m map[string]any) bool {
	if v, ok := m["success"].(bool); ok {
		return v
	}
	return true
}

// asInt64 converts a decoded JSON value to int64, tolerating the float64 the
// decoder produces for JSON numbers. Returns 0 for anything else.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// asString converts a decoded JSON value to string, returning "" for
// non-strings.
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat64 converts a decoded JSON number to float64, returning 0 for
// anything else.
func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
