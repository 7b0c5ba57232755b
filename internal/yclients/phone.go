// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import "strings"

// phoneSearchSuffixLen is the number of trailing digits used as the search
// key when looking up clients by phone. Searching by suffix deliberately
// broadens the candidate set so country-code and leading-zero variants of the
// same number are still found.
const phoneSearchSuffixLen = 7

// NormalizePhone strips every non-digit character from a phone number.
// Returns ErrNoDigits when no digit survives.
//
//	NormalizePhone("+7 (912) 345-67-89") // "79123456789"
//	NormalizePhone("922 661 1768")       // "9226611768"
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrNoDigits
	}
	return b.String(), nil
}

// phoneSearchKey returns the last phoneSearchSuffixLen digits of a normalized
// phone, or the whole number when it is shorter.
func phoneSearchKey(clean string) string {
	if len(clean) >= phoneSearchSuffixLen {
		return clean[len(clean)-phoneSearchSuffixLen:]
	}
	return clean
}

// phoneMatches reports whether a candidate's normalized phone matches the
// normalized input. A match is either exact equality, or the candidate
// ending with the input when the input carries at least
// phoneSearchSuffixLen digits. The suffix rule covers callers passing a
// local-format number while the stored one includes a country code.
func phoneMatches(candidate, input string) bool {
	if candidate == "" {
		return false
	}
	if candidate == input {
		return true
	}
	return len(input) >= phoneSearchSuffixLen && strings.HasSuffix(candidate, input)
}
