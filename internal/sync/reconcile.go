// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/flexsync/internal/database"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/models"
)

// Outcome is the result of reconciling one record.
type Outcome int

const (
	OutcomeInserted Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	}
	return "none"
}

// EntityStore is the local store surface reconciliation writes through.
// Every method is a single atomic statement.
type EntityStore interface {
	InsertEntity(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) (string, error)
	UpdateEntity(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) error
	MergeDetail(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) error
	// InsertDetailed inserts list and merges detail atomically.
	InsertDetailed(ctx context.Context, table string, list, detail *models.EntityRecord, now time.Time) (string, error)
}

// Reconciler decides insert versus update for one remote record.
type Reconciler struct {
	store EntityStore
	now   func() time.Time
}

// NewReconciler creates a Reconciler. A nil clock uses time.Now.
func NewReconciler(store EntityStore, clock func() time.Time) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{store: store, now: clock}
}

// ReconcileList writes a list-phase record. An existing row gets its list
// columns and payload overwritten; a new row is inserted pending detail.
// Reconciling the same document twice leaves the same row apart from
// updated_at. Mapping failures come back as *MappingError, store failures
// as *FatalError.
func (r *Reconciler) ReconcileList(ctx context.Context, coll *mapping.Collection, doc models.Document) (Outcome, error) {
	rec, err := project(coll, doc, mapping.ListPhase)
	if err != nil {
		return 0, err
	}
	now := r.now()

	err = r.store.UpdateEntity(ctx, coll.Table, rec, now)
	if err == nil {
		return OutcomeUpdated, nil
	}
	if !errors.Is(err, database.ErrEntityNotFound) {
		return 0, fatal("update "+coll.Name, err)
	}
	if _, err := r.store.InsertEntity(ctx, coll.Table, rec, now); err != nil {
		return 0, fatal("insert "+coll.Name, err)
	}
	return OutcomeInserted, nil
}

// ReconcileDetail merges a detail payload onto the stored row and marks it
// fetched. Null detail values keep the stored value. A row missing locally
// is inserted already fetched.
func (r *Reconciler) ReconcileDetail(ctx context.Context, coll *mapping.Collection, doc models.Document) (Outcome, error) {
	rec, err := project(coll, doc, mapping.DetailPhase)
	if err != nil {
		return 0, err
	}
	now := r.now()

	err = r.store.MergeDetail(ctx, coll.Table, rec, now)
	if err == nil {
		return OutcomeUpdated, nil
	}
	if !errors.Is(err, database.ErrEntityNotFound) {
		return 0, fatal("merge detail "+coll.Name, err)
	}

	listRec, err := project(coll, doc, mapping.ListPhase)
	if err != nil {
		return 0, err
	}
	if _, err := r.store.InsertDetailed(ctx, coll.Table, listRec, rec, now); err != nil {
		return 0, fatal("insert "+coll.Name, err)
	}
	return OutcomeInserted, nil
}

func project(coll *mapping.Collection, doc models.Document, phase mapping.Phase) (*models.EntityRecord, error) {
	rec, err := coll.Project(doc, phase)
	if err != nil {
		id, _ := coll.RemoteID(doc)
		return nil, &MappingError{Collection: coll.Name, RemoteID: id, Err: err}
	}
	return rec, nil
}
