// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/salonsync/config.yaml",
	"/etc/salonsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultBaseURL is the production YCLIENTS API endpoint.
const DefaultBaseURL = "https://api.yclients.com/api/v1"

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		YClients: YClientsConfig{
			BaseURL:           DefaultBaseURL,
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			BackoffFactor:     2,
			RequestsPerSecond: 0, // unthrottled
		},
		Database: DatabaseConfig{
			Dir:       "/data/salonsync",
			MaxMemory: "512MB",
		},
		Profiles: ProfilesConfig{
			Path: "profiles.json",
		},
		Sync: SyncConfig{
			Interval:     6 * time.Hour,
			ProfilePause: 10 * time.Second,
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    ":9754",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// YCLIENTS_PARTNER_TOKEN -> yclients.partner_token, SYNC_INTERVAL ->
	// sync.interval, and so on.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to "" and are ignored, so unrelated process
// environment does not leak into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	mappings := map[string]string{
		"yclients_base_url":            "yclients.base_url",
		"yclients_partner_token":       "yclients.partner_token",
		"yclients_user_token":          "yclients.user_token",
		"yclients_timeout":             "yclients.timeout",
		"yclients_max_retries":         "yclients.max_retries",
		"yclients_backoff_factor":      "yclients.backoff_factor",
		"yclients_requests_per_second": "yclients.requests_per_second",

		"database_dir":        "database.dir",
		"database_max_memory": "database.max_memory",

		"profiles_path": "profiles.path",

		"sync_interval":      "sync.interval",
		"sync_profile_pause": "sync.profile_pause",

		"server_enabled": "server.enabled",
		"server_addr":    "server.addr",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
