// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package config defines the SalonSync configuration model and its Koanf v2
// based loader. Configuration is layered: built-in defaults, then an optional
// YAML config file, then environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the SalonSync process.
type Config struct {
	YClients YClientsConfig `koanf:"yclients"`
	Database DatabaseConfig `koanf:"database"`
	Profiles ProfilesConfig `koanf:"profiles"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// YClientsConfig holds the request context shared by every API client
// instance. Per-profile credentials (partner/user tokens) come from the
// profile store; the tokens here are a single-tenant fallback used when a
// profile does not carry its own.
type YClientsConfig struct {
	BaseURL      string `koanf:"base_url"`
	PartnerToken string `koanf:"partner_token"`
	UserToken    string `koanf:"user_token"`

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries caps additional attempts after an HTTP 429. Only 429
	// responses are retried.
	MaxRetries int `koanf:"max_retries"`

	// BackoffFactor is the base delay in seconds for exponential backoff:
	// the n-th retry sleeps backoff_factor * 2^(n-1) seconds.
	BackoffFactor float64 `koanf:"backoff_factor"`

	// RequestsPerSecond throttles outgoing requests per client instance.
	// Zero disables client-side throttling.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// DatabaseConfig configures the DuckDB document store.
type DatabaseConfig struct {
	// Dir is the directory holding one database file per profile.
	Dir string `koanf:"dir"`

	// MaxMemory is passed to DuckDB (e.g. "512MB").
	MaxMemory string `koanf:"max_memory"`
}

// ProfilesConfig locates the multi-tenant profile store.
type ProfilesConfig struct {
	Path string `koanf:"path"`
}

// SyncConfig configures the orchestration loop.
type SyncConfig struct {
	// Interval between periodic full syncs in daemon mode.
	Interval time.Duration `koanf:"interval"`

	// ProfilePause is the pause between consecutive profiles when syncing
	// all of them in one run.
	ProfilePause time.Duration `koanf:"profile_pause"`
}

// ServerConfig configures the daemon health/metrics HTTP listener.
type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateYClients(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateYClients() error {
	if c.YClients.BaseURL == "" {
		return fmt.Errorf("YCLIENTS_BASE_URL must not be empty")
	}
	if c.YClients.Timeout <= 0 {
		return fmt.Errorf("YCLIENTS_TIMEOUT must be positive, got %s", c.YClients.Timeout)
	}
	if c.YClients.MaxRetries < 0 {
		return fmt.Errorf("YCLIENTS_MAX_RETRIES must not be negative, got %d", c.YClients.MaxRetries)
	}
	if c.YClients.BackoffFactor <= 0 {
		return fmt.Errorf("YCLIENTS_BACKOFF_FACTOR must be positive, got %g", c.YClients.BackoffFactor)
	}
	if c.YClients.RequestsPerSecond < 0 {
		return fmt.Errorf("YCLIENTS_REQUESTS_PER_SECOND must not be negative, got %g", c.YClients.RequestsPerSecond)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.ProfilePause < 0 {
		return fmt.Errorf("SYNC_PROFILE_PAUSE must not be negative, got %s", c.Sync.ProfilePause)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR is required when SERVER_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
