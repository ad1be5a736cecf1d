// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/flexsync/internal/models"
)

// CollectionSummary counts the rows of one collection. LastSuccess is left
// for the caller, which owns the ledger.
func (db *DB) CollectionSummary(ctx context.Context, name string) (summary *models.CollectionSummary, err error) {
	c, ok := db.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: collection %q", ErrUnknownTable, name)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("summary", c.Table, start, err) }(time.Now())

	query := fmt.Sprintf(`SELECT
	COUNT(*),
	CAST(COALESCE(SUM(CASE WHEN detail_fetched = FALSE AND remote_deleted = FALSE THEN 1 ELSE 0 END), 0) AS BIGINT),
	CAST(COALESCE(SUM(CASE WHEN remote_deleted = TRUE THEN 1 ELSE 0 END), 0) AS BIGINT)
FROM %s`, c.Table)

	s := &models.CollectionSummary{
		Collection:  c.Name,
		Table:       c.Table,
		TwoPhase:    c.TwoPhase(),
		GeneratedAt: time.Now().UTC(),
	}
	if err := db.conn.QueryRowContext(ctx, query).Scan(&s.Total, &s.DetailPending, &s.RemoteDeleted); err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", c.Table, err)
	}
	if !c.TwoPhase() {
		s.DetailPending = 0
	}
	return s, nil
}
