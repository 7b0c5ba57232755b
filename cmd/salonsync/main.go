// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

// Package main is the entry point for the SalonSync synchronization service.
//
// SalonSync mirrors salon data (company info, service catalogs, staff lists
// and derived booking prompts) from the YCLIENTS platform into a local DuckDB
// document store, one database file per configured profile.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Logging: Initialize zerolog with the configured level and format
//  3. Profiles: Load the multi-tenant profile store (credentials, salon ids, proxy)
//  4. Per-profile: Open a DuckDB document store and build a circuit-breaker
//     protected YCLIENTS client for each salon
//  5. HTTP Server (daemon mode): Health and Prometheus metrics endpoints
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (YCLIENTS_PARTNER_TOKEN, SYNC_INTERVAL, ...)
//   - Config file (config.yaml, or the path in CONFIG_PATH / -config)
//   - Built-in defaults
//
// Profiles live in a separate JSON file referenced by PROFILES_PATH. Each
// profile carries its own partner/user tokens, salon ids, timezone and
// optional proxy; profiles without tokens fall back to the global ones.
//
// # Run Modes
//
// One-shot (default): sync every profile once, pausing SYNC_PROFILE_PAUSE
// between profiles, then exit. A single profile can be selected with
// -profile.
//
// Daemon (-daemon): sync all profiles immediately and then every
// SYNC_INTERVAL, serving /healthz and /metrics when SERVER_ENABLED=true.
//
// # Signal Handling
//
// In daemon mode the service handles graceful shutdown on SIGINT and SIGTERM:
//   - Cancels in-flight sync runs at the next phase boundary
//   - Stops the HTTP listener with a 10s drain timeout
//   - Closes every per-profile database
//
// # Example Usage
//
// One-shot sync of every profile:
//
//	export YCLIENTS_PARTNER_TOKEN=your-partner-token
//	export PROFILES_PATH=/data/profiles.json
//	./salonsync
//
// One-shot sync of a single profile:
//
//	./salonsync -profile "Main Street Salon"
//
// Daemon mode with metrics:
//
//	export SERVER_ENABLED=true
//	export SYNC_INTERVAL=6h
//	./salonsync -daemon
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/salonsync/internal/api"
	"github.com/avolkov/salonsync/internal/config"
	"github.com/avolkov/salonsync/internal/logging"
	"github.com/avolkov/salonsync/internal/profile"
	"github.com/avolkov/salonsync/internal/store"
	"github.com/avolkov/salonsync/internal/syncer"
	"github.com/avolkov/salonsync/internal/yclients"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath   = flag.String("config", "", "path to config.yaml (overrides CONFIG_PATH)")
		profileName  = flag.String("profile", "", "sync only the named profile")
		listProfiles = flag.Bool("list-profiles", false, "print configured profile names and exit")
		daemon       = flag.Bool("daemon", false, "run periodic syncs until interrupted")
	)
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, *configPath); err != nil {
			logging.Fatal().Err(err).Msg("Failed to set config path")
		}
	}

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	set, err := profile.Load(cfg.Profiles.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Profiles.Path).Msg("Failed to load profiles")
	}

	if *listProfiles {
		for _, name := range set.Names() {
			fmt.Println(name)
		}
		return
	}

	profiles, err := selectProfiles(set, *profileName)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to resolve profile selection")
	}

	logging.Info().
		Int("profiles", len(profiles)).
		Str("base_url", cfg.YClients.BaseURL).
		Str("db_dir", cfg.Database.Dir).
		Bool("daemon", *daemon).
		Msg("Configuration loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *daemon {
		runDaemon(ctx, cfg, profiles)
		return
	}

	if err := runOnce(ctx, cfg, profiles); err != nil {
		logging.Error().Err(err).Msg("Sync finished with errors")
		os.Exit(1)
	}
	logging.Info().Msg("Sync finished")
}

// selectProfiles resolves the -profile flag against the loaded set. An empty
// name selects every profile.
func selectProfiles(set *profile.Set, name string) ([]profile.Profile, error) {
	if name == "" {
		return set.All(), nil
	}
	p, err := set.Get(name)
	if err != nil {
		return nil, err
	}
	return []profile.Profile{p}, nil
}

// buildSyncer opens the profile's database and wires a Syncer around it. The
// returned close func releases the database.
func buildSyncer(cfg *config.Config, p profile.Profile) (*syncer.Syncer, func(), error) {
	st, err := store.New(store.Options{
		Dir:       cfg.Database.Dir,
		Name:      p.Slug(),
		MaxMemory: cfg.Database.MaxMemory,
		Timezone:  p.Timezone,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database for profile %q: %w", p.Name, err)
	}

	// Profiles without their own tokens inherit the global ones.
	if p.YClients.PartnerToken == "" {
		p.YClients.PartnerToken = cfg.YClients.PartnerToken
	}
	if p.YClients.UserToken == "" {
		p.YClients.UserToken = cfg.YClients.UserToken
	}
	if p.YClients.PartnerToken == "" {
		closeErr := st.Close()
		if closeErr != nil {
			logging.Error().Err(closeErr).Str("profile", p.Name).Msg("Error closing database")
		}
		return nil, nil, fmt.Errorf("profile %q has no partner token and YCLIENTS_PARTNER_TOKEN is not set", p.Name)
	}

	base := yclients.Config{
		BaseURL:           cfg.YClients.BaseURL,
		Timeout:           cfg.YClients.Timeout,
		MaxRetries:        cfg.YClients.MaxRetries,
		BackoffFactor:     cfg.YClients.BackoffFactor,
		RequestsPerSecond: cfg.YClients.RequestsPerSecond,
	}

	sy := syncer.New(p, st, syncer.DefaultClientFactory(p, base))
	closeFn := func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Str("profile", p.Name).Msg("Error closing database")
		}
	}
	return sy, closeFn, nil
}

// runOnce syncs each selected profile a single time, pausing between
// profiles. Per-profile failures are logged and counted, not fatal; the
// remaining profiles still sync.
func runOnce(ctx context.Context, cfg *config.Config, profiles []profile.Profile) error {
	failed := 0
	for i, p := range profiles {
		if i > 0 && cfg.Sync.ProfilePause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Sync.ProfilePause):
			}
		}

		sy, closeStore, err := buildSyncer(cfg, p)
		if err != nil {
			logging.Error().Err(err).Str("profile", p.Name).Msg("Skipping profile")
			failed++
			continue
		}

		logging.Info().Str("profile", p.Name).Msg("Syncing profile")
		if err := sy.Run(ctx); err != nil {
			logging.Error().Err(err).Str("profile", p.Name).Msg("Profile sync failed")
			failed++
		}
		closeStore()

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed", failed, len(profiles))
	}
	return nil
}

// runDaemon keeps every profile syncing on the configured interval until the
// context is canceled, optionally serving health and metrics endpoints.
func runDaemon(ctx context.Context, cfg *config.Config, profiles []profile.Profile) {
	var srv *api.Server
	if cfg.Server.Enabled {
		srv = api.New(cfg.Server.Addr)
		go func() {
			logging.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
			if err := srv.Start(); err != nil {
				logging.Error().Err(err).Msg("HTTP server error")
			}
		}()
	}

	done := make(chan struct{}, len(profiles))
	running := 0
	for _, p := range profiles {
		sy, closeStore, err := buildSyncer(cfg, p)
		if err != nil {
			logging.Error().Err(err).Str("profile", p.Name).Msg("Skipping profile")
			continue
		}
		running++
		go func(p profile.Profile) {
			defer closeStore()
			defer func() { done <- struct{}{} }()
			logging.Info().
				Str("profile", p.Name).
				Dur("interval", cfg.Sync.Interval).
				Msg("Starting periodic sync")
			sy.RunPeriodic(ctx, cfg.Sync.Interval)
		}(p)
	}

	if running == 0 {
		logging.Error().Msg("No profiles could be started")
	} else {
		<-ctx.Done()
		logging.Info().Msg("Shutdown signal received, waiting for syncs to finish")
		for i := 0; i < running; i++ {
			<-done
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
