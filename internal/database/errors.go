// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/flexsync/internal/logging"
)

var (
	// ErrEntityNotFound is returned when no row carries the remote id.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownTable is returned for tables no registered collection owns.
	ErrUnknownTable = errors.New("unknown collection table")
)

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
