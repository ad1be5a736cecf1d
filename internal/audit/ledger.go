// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/models"
)

// Ledger records the lifecycle of sync runs. It is for reporting only;
// resumption is driven by the entities' detail flags.
type Ledger struct {
	store Store
	now   Clock
}

// NewLedger creates a ledger over store. A nil clock uses time.Now.
func NewLedger(store Store, clock Clock) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{store: store, now: clock}
}

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

// Start opens a running row for entityType.
func (l *Ledger) Start(ctx context.Context, entityType string, mode models.SyncMode) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:         uuid.NewString(),
		EntityType: entityType,
		Mode:       mode,
		StartedAt:  l.timestamp(),
		Status:     models.RunStatusRunning,
	}
	if err := l.store.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to open sync run for %s: %w", entityType, err)
	}

	logging.Ctx(logging.ContextWithRunID(ctx, run.ID)).Debug().
		Str("entity_type", entityType).
		Str("mode", string(mode)).
		Msg("Sync run opened")
	return run, nil
}

// Complete closes run with a terminal status. The row is written once; a
// second call returns ErrRunClosed and leaves the stored row untouched.
func (l *Ledger) Complete(ctx context.Context, run *models.SyncRun, stats models.SyncStats, status models.RunStatus, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot complete run %s with non-terminal status %q", run.ID, status)
	}
	if run.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrRunClosed, run.ID, run.Status)
	}

	closed := *run
	completedAt := l.timestamp()
	closed.CompletedAt = &completedAt
	closed.Stats = stats
	closed.Status = status
	closed.ErrorMessage = errMsg

	if err := l.store.Finish(ctx, &closed); err != nil {
		return fmt.Errorf("failed to complete sync run %s: %w", run.ID, err)
	}
	*run = closed

	logging.Ctx(logging.ContextWithRunID(ctx, run.ID)).Debug().
		Str("entity_type", run.EntityType).
		Str("status", string(status)).
		Dur("duration", run.Duration()).
		Msg("Sync run closed")
	return nil
}

// Recent returns the n most recent runs across all entity types.
func (l *Ledger) Recent(ctx context.Context, n int) ([]models.SyncRun, error) {
	return l.store.Query(ctx, QueryFilter{Limit: n})
}

// History returns the n most recent runs of one entity type.
func (l *Ledger) History(ctx context.Context, entityType string, n int) ([]models.SyncRun, error) {
	return l.store.Query(ctx, QueryFilter{EntityType: entityType, Limit: n})
}

// LastSuccessful returns the most recent successful run per entity type.
func (l *Ledger) LastSuccessful(ctx context.Context) (map[string]models.SyncRun, error) {
	runs, err := l.store.Query(ctx, QueryFilter{Statuses: []models.RunStatus{models.RunStatusSuccess}})
	if err != nil {
		return nil, err
	}
	last := make(map[string]models.SyncRun)
	for _, r := range runs {
		if _, seen := last[r.EntityType]; !seen {
			last[r.EntityType] = r
		}
	}
	return last, nil
}

// RecoverAbandoned closes running rows of entityType as failed. It is called
// before a new run starts, when no other run of that type can be live.
func (l *Ledger) RecoverAbandoned(ctx context.Context, entityType string) (int, error) {
	running, err := l.store.Query(ctx, QueryFilter{
		EntityType: entityType,
		Statuses:   []models.RunStatus{models.RunStatusRunning},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list running %s runs: %w", entityType, err)
	}

	recovered := 0
	for i := range running {
		run := running[i]
		if err := l.Complete(ctx, &run, run.Stats, models.RunStatusFailed, AbandonedMessage); err != nil {
			return recovered, err
		}
		logging.Ctx(ctx).Warn().
			Str("entity_type", entityType).
			Str("abandoned_run_id", run.ID).
			Time("started_at", run.StartedAt).
			Msg("Closed abandoned sync run")
		recovered++
	}
	return recovered, nil
}
