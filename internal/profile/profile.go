// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package profile loads named company profiles from a JSON file. A profile
// bundles everything one salon chain needs for a sync run: credentials,
// salon ids, timezone and optional proxy settings.
package profile

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/avolkov/salonsync/internal/logging"
)

// Credentials are the YCLIENTS API tokens for one profile. Both are optional
// at parse time: the partner token usually belongs to the integration as a
// whole and is inherited from the global configuration, while the user token
// is per-account.
type Credentials struct {
	PartnerToken string `json:"partner_token"`
	UserToken    string `json:"user_token"`
}

// Proxy is the optional outbound proxy configuration of a profile.
type Proxy struct {
	UseProxy bool   `json:"use_proxy"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// URL builds the proxy URL, with credentials when configured. Returns nil
// when the proxy is disabled or incomplete.
func (p *Proxy) URL() *url.URL {
	if p == nil || !p.UseProxy || p.Host == "" || p.Port == 0 {
		return nil
	}
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Profile describes one company to sync.
type Profile struct {
	Name     string      `json:"name" validate:"required"`
	Timezone string      `json:"timezone"`
	SalonIDs []int64     `json:"salon_ids" validate:"required,min=1"`
	YClients Credentials `json:"yclients"`
	Proxy    *Proxy      `json:"proxy"`
}

// Slug derives a filesystem-safe identifier from the profile name, used for
// per-profile database files.
func (p *Profile) Slug() string {
	slug := strings.ToLower(strings.TrimSpace(p.Name))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "profile"
	}
	return b.String()
}

// legacyFile is the keyed-object format older profile files use:
// {"default_profile": "x", "profiles": {"x": {...}}}.
type legacyFile struct {
	DefaultProfile string             `json:"default_profile"`
	Profiles       map[string]Profile `json:"profiles"`
}

// Set is an ordered collection of profiles. The first profile is the
// default.
type Set struct {
	profiles []Profile
	byName   map[string]int
}

var validate = validator.New()

// Load reads a profiles file. Both supported formats are accepted: a plain
// array of profiles, and the legacy keyed-object format.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes profiles from JSON.
func Parse(data []byte) (*Set, error) {
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		// Not an array: try the legacy keyed format.
		var legacy legacyFile
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil || legacy.Profiles == nil {
			return nil, fmt.Errorf("failed to parse profiles file: %w", err)
		}
		profiles = fromLegacy(legacy)
	}

	set := &Set{byName: make(map[string]int, len(profiles))}
	for _, p := range profiles {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("invalid profile %q: %w", p.Name, err)
		}
		if _, dup := set.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		set.byName[p.Name] = len(set.profiles)
		set.profiles = append(set.profiles, p)
	}

	logging.Info().Int("profiles", len(set.profiles)).Msg("Loaded profiles")
	return set, nil
}

// fromLegacy flattens the keyed format, putting the declared default first
// so the first-is-default rule keeps working. The remaining profiles follow
// in sorted name order; the keyed format has no order of its own.
func fromLegacy(legacy legacyFile) []Profile {
	profiles := make([]Profile, 0, len(legacy.Profiles))
	if def, ok := legacy.Profiles[legacy.DefaultProfile]; ok {
		if def.Name == "" {
			def.Name = legacy.DefaultProfile
		}
		profiles = append(profiles, def)
	}

	names := make([]string, 0, len(legacy.Profiles))
	for name := range legacy.Profiles {
		if name != legacy.DefaultProfile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		p := legacy.Profiles[name]
		if p.Name == "" {
			p.Name = name
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// Names returns the profile names in file order.
func (s *Set) Names() []string {
	names := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		names[i] = p.Name
	}
	return names
}

// All returns the profiles in file order.
func (s *Set) All() []Profile {
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns a profile by name. An empty name selects the default (first)
// profile.
func (s *Set) Get(name string) (Profile, error) {
	if len(s.profiles) == 0 {
		return Profile{}, fmt.Errorf("no profiles configured")
	}
	if name == "" {
		return s.profiles[0], nil
	}
	i, ok := s.byName[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return s.profiles[i], nil
}
