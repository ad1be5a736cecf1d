// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/flexsync/internal/models"
)

// SQLStore implements Store on the sync_runs table. The table is created by
// the database package migrations; the SQL is portable across duckdb and
// sqlite.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open connection pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const runColumns = `id, entity_type, mode, started_at, completed_at,
	records_fetched, records_inserted, records_updated, records_failed,
	details_fetched, not_found, status, COALESCE(error_message, '')`

// Save inserts a new run.
func (s *SQLStore) Save(ctx context.Context, run *models.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_runs (
	id, entity_type, mode, started_at, completed_at,
	records_fetched, records_inserted, records_updated, records_failed,
	details_fetched, not_found, status, error_message
) VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.EntityType, string(run.Mode), run.StartedAt,
		run.Stats.Fetched, run.Stats.Inserted, run.Stats.Updated, run.Stats.Failed,
		run.Stats.DetailsFetched, run.Stats.NotFound, string(run.Status), nullString(run.ErrorMessage))
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Finish updates a running row. The status guard in the WHERE clause keeps
// the lifecycle linear even across processes.
func (s *SQLStore) Finish(ctx context.Context, run *models.SyncRun) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sync_runs SET
	completed_at = ?,
	records_fetched = ?, records_inserted = ?, records_updated = ?, records_failed = ?,
	details_fetched = ?, not_found = ?,
	status = ?, error_message = ?
WHERE id = ? AND status = ?`,
		run.CompletedAt,
		run.Stats.Fetched, run.Stats.Inserted, run.Stats.Updated, run.Stats.Failed,
		run.Stats.DetailsFetched, run.Stats.NotFound,
		string(run.Status), nullString(run.ErrorMessage),
		run.ID, string(models.RunStatusRunning))
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, run.ID); err != nil {
			return err
		}
		return ErrRunClosed
	}
	return nil
}

// Get retrieves a run by id.
func (s *SQLStore) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM sync_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// Query returns matching runs newest first.
func (s *SQLStore) Query(ctx context.Context, filter QueryFilter) ([]models.SyncRun, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := "SELECT " + runColumns + " FROM sync_runs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		mode        string
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.EntityType, &mode, &run.StartedAt, &completedAt,
		&run.Stats.Fetched, &run.Stats.Inserted, &run.Stats.Updated, &run.Stats.Failed,
		&run.Stats.DetailsFetched, &run.Stats.NotFound, &status, &run.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	run.Mode = models.SyncMode(mode)
	run.Status = models.RunStatus(status)
	run.StartedAt = run.StartedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
