// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package audit is the sync audit ledger: one row per run and entity type,
// opened as running and closed exactly once with a terminal status.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/flexsync/internal/models"
)

var (
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("sync run not found")

	// ErrRunClosed is returned when completing a run that is no longer running.
	ErrRunClosed = errors.New("sync run already completed")
)

// AbandonedMessage is recorded on running rows left behind by a dead process.
const AbandonedMessage = "abandoned"

// Clock returns the current time.
type Clock func() time.Time

// QueryFilter selects ledger rows. Results are newest first.
type QueryFilter struct {
	EntityType string
	Statuses   []models.RunStatus
	Limit      int
}

func (f *QueryFilter) matches(run *models.SyncRun) bool {
	if f.EntityType != "" && run.EntityType != f.EntityType {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if run.Status == s {
			return true
		}
	}
	return false
}

// Store persists ledger rows.
type Store interface {
	// Save inserts a new run.
	Save(ctx context.Context, run *models.SyncRun) error

	// Finish writes the completion fields of a running row. It returns
	// ErrRunClosed when the row is already terminal.
	Finish(ctx context.Context, run *models.SyncRun) error

	// Get retrieves a run by id.
	Get(ctx context.Context, id string) (*models.SyncRun, error)

	// Query retrieves runs matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]models.SyncRun, error)
}
