// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/flexsync/internal/audit"
	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/database"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
	flexsync "github.com/tomtom215/flexsync/internal/sync"
)

// app is the set of components one command works with. It owns the store
// handle: every command that opens an app closes it on all exit paths.
type app struct {
	cfg      *config.Config
	registry *mapping.Registry
	db       *database.DB
	ledger   *audit.Ledger
}

// openApp loads configuration, initializes logging and opens the store.
// requireRemote is set by commands that contact the API.
func openApp(opts *RootOptions, requireRemote bool) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{RequireRemote: requireRemote, Path: opts.ConfigPath})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logging.Init(logging.Config{
		Level:     level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	registry := mapping.Default()
	db, err := database.Open(&cfg.Database, registry)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open database", err)
	}

	return &app{
		cfg:      cfg,
		registry: registry,
		db:       db,
		ledger:   audit.NewLedger(audit.NewSQLStore(db.Conn()), nil),
	}, nil
}

// Close releases the store handle.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database")
	}
}

// remote builds the API client, behind the circuit breaker when enabled.
func (a *app) remote() flexsync.RemoteAPI {
	logging.Debug().
		Str("base_url", a.cfg.Remote.BaseURL).
		Str("token", logging.SanitizeToken(a.cfg.Remote.Token)).
		Bool("circuit_breaker", a.cfg.Breaker.Enabled).
		Msg("Remote API configured")

	var api flexsync.RemoteAPI = flexsync.NewFlexClient(&a.cfg.Remote)
	if a.cfg.Breaker.Enabled {
		api = flexsync.NewCircuitBreakerClient(api, &a.cfg.Breaker)
	}
	return api
}

// orchestrator wires the sync stack over api. Progress lines go to progress.
func (a *app) orchestrator(api flexsync.RemoteAPI, progress io.Writer) *flexsync.Orchestrator {
	exec := flexsync.NewExecutor(flexsync.PolicyFromConfig(&a.cfg.Retry))
	fetcher := flexsync.NewFetcher(api, exec, a.cfg.Remote.PageSize)

	return flexsync.NewOrchestrator(flexsync.Deps{
		Registry: a.registry,
		Store:    a.db,
		Fetcher:  fetcher,
		Ledger:   a.ledger,
		Progress: progress,
	}, flexsync.OptionsFromConfig(&a.cfg.Sync))
}

// signalContext is canceled on SIGINT or SIGTERM so that a run in flight
// closes its ledger row before the process exits.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
