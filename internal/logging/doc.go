// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package logging provides the process-wide zerolog logger for flexsync.
//
// Logs go to stderr as JSON by default (console format for development).
// Stdout is left to the CLI for progress lines and reports.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("collection", "contacts").Msg("Sync started")
//
// # Context Fields
//
// Every sync invocation runs under a context carrying a correlation ID and,
// once the ledger row exists, the run ID:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithRunID(ctx, run.ID)
//	logging.Ctx(ctx).Warn().Err(err).Str("remote_id", id).Msg("Detail fetch failed")
//
// # slog Interop
//
// NewSlogLogger exposes the same stream as a *slog.Logger for sutureslog.
package logging
