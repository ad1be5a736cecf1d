// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/metrics"
	"github.com/tomtom215/flexsync/internal/models"
)

func (db *DB) collection(table string) (*mapping.Collection, error) {
	c, ok := db.byTable[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return c, nil
}

func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

func kindOf(c *mapping.Collection, column string) mapping.Kind {
	for _, f := range c.Fields {
		if f.Column == column {
			return f.Kind
		}
	}
	return mapping.Text
}

// FindEntity loads the row for remoteID, or returns ErrEntityNotFound.
func (db *DB) FindEntity(ctx context.Context, table, remoteID string) (entity *models.LocalEntity, err error) {
	c, err := db.collection(table)
	if err != nil {
		return nil, err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("find", table, start, err) }(time.Now())

	d := db.dialect
	selects := []string{
		"id", "remote_id",
		d.selectExpr("payload", mapping.JSON),
		d.selectExpr("detail_payload", mapping.JSON),
		"detail_fetched", "detail_fetched_at", "remote_deleted", "created_at", "updated_at",
	}
	for _, f := range c.Fields {
		selects = append(selects, d.selectExpr(f.Column, f.Kind))
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE remote_id = ?", strings.Join(selects, ", "), table)

	var (
		e             models.LocalEntity
		detailPayload sql.NullString
		fetchedAt     sql.NullTime
	)
	mapped := make([]any, len(c.Fields))
	dest := []any{
		&e.ID, &e.RemoteID, &e.Payload, &detailPayload,
		&e.DetailFetched, &fetchedAt, &e.RemoteDeleted, &e.CreatedAt, &e.UpdatedAt,
	}
	for i := range mapped {
		dest = append(dest, &mapped[i])
	}

	if err := db.conn.QueryRowContext(ctx, query, remoteID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to load %s/%s: %w", table, remoteID, err)
	}

	if detailPayload.Valid {
		e.DetailPayload = &detailPayload.String
	}
	if fetchedAt.Valid {
		t := fetchedAt.Time.UTC()
		e.DetailFetchedAt = &t
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.Values = make(map[string]any, len(c.Fields))
	for i, f := range c.Fields {
		e.Values[f.Column] = mapped[i]
	}
	return &e, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertEntity creates the row for a never-seen remote id with
// detail_fetched=false and returns its surrogate key.
func (db *DB) InsertEntity(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) (id string, err error) {
	c, err := db.collection(table)
	if err != nil {
		return "", err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("insert", table, start, err) }(time.Now())

	id, query, args := db.insertStmt(c, rec, now)
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert %s/%s: %w", table, rec.RemoteID, err)
	}
	return id, nil
}

func (db *DB) insertStmt(c *mapping.Collection, rec *models.EntityRecord, now time.Time) (id, query string, args []any) {
	d := db.dialect
	id = uuid.NewString()
	ts := stamp(now)

	columns := []string{"id", "remote_id"}
	holders := []string{"?", "?"}
	args = []any{id, rec.RemoteID}
	for _, cv := range rec.Values {
		columns = append(columns, cv.Column)
		holders = append(holders, d.placeholder(kindOf(c, cv.Column)))
		args = append(args, bind(cv.Value))
	}
	columns = append(columns, "payload", "detail_fetched", "remote_deleted", "created_at", "updated_at")
	holders = append(holders, d.placeholder(mapping.JSON), "FALSE", "FALSE", "?", "?")
	args = append(args, rec.Payload, ts, ts)

	query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.Table, strings.Join(columns, ", "), strings.Join(holders, ", "))
	return id, query, args
}

// UpdateEntity overwrites the projected columns and the list payload, and
// clears remote_deleted since the record was just seen upstream.
func (db *DB) UpdateEntity(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) (err error) {
	c, err := db.collection(table)
	if err != nil {
		return err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("update", table, start, err) }(time.Now())

	d := db.dialect
	sets := make([]string, 0, len(rec.Values)+3)
	args := make([]any, 0, len(rec.Values)+4)
	for _, cv := range rec.Values {
		sets = append(sets, cv.Column+" = "+d.placeholder(kindOf(c, cv.Column)))
		args = append(args, bind(cv.Value))
	}
	sets = append(sets, "payload = "+d.placeholder(mapping.JSON), "remote_deleted = FALSE", "updated_at = ?")
	args = append(args, rec.Payload, stamp(now), rec.RemoteID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE remote_id = ?", table, strings.Join(sets, ", "))
	return execOne(ctx, db.conn, query, args, table, rec.RemoteID)
}

// MergeDetail writes a detail projection. Mapped columns keep their stored
// value when the detail value is null, the detail payload is stored
// alongside the list payload and the row leaves the pending set.
func (db *DB) MergeDetail(ctx context.Context, table string, rec *models.EntityRecord, now time.Time) (err error) {
	c, err := db.collection(table)
	if err != nil {
		return err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("merge_detail", table, start, err) }(time.Now())

	query, args := db.mergeStmt(c, rec, now)
	return execOne(ctx, db.conn, query, args, table, rec.RemoteID)
}

func (db *DB) mergeStmt(c *mapping.Collection, rec *models.EntityRecord, now time.Time) (string, []any) {
	d := db.dialect
	ts := stamp(now)
	sets := make([]string, 0, len(rec.Values)+5)
	args := make([]any, 0, len(rec.Values)+4)
	for _, cv := range rec.Values {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, %s)", cv.Column, d.placeholder(kindOf(c, cv.Column)), cv.Column))
		args = append(args, bind(cv.Value))
	}
	sets = append(sets,
		"detail_payload = "+d.placeholder(mapping.JSON),
		"detail_fetched = TRUE",
		"detail_fetched_at = ?",
		"remote_deleted = FALSE",
		"updated_at = ?")
	args = append(args, rec.Payload, ts, ts, rec.RemoteID)

	return fmt.Sprintf("UPDATE %s SET %s WHERE remote_id = ?", c.Table, strings.Join(sets, ", ")), args
}

// InsertDetailed creates a row straight from a detail payload: the list
// projection is inserted and the detail merged onto it in one transaction,
// so the row is either absent or fully fetched.
func (db *DB) InsertDetailed(ctx context.Context, table string, list, detail *models.EntityRecord, now time.Time) (id string, err error) {
	c, err := db.collection(table)
	if err != nil {
		return "", err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("insert_detailed", table, start, err) }(time.Now())

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin insert of %s/%s: %w", table, list.RemoteID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id, query, args := db.insertStmt(c, list, now)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert %s/%s: %w", table, list.RemoteID, err)
	}
	query, args = db.mergeStmt(c, detail, now)
	if err = execOne(ctx, tx, query, args, table, detail.RemoteID); err != nil {
		return "", err
	}
	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit insert of %s/%s: %w", table, list.RemoteID, err)
	}
	return id, nil
}

// MarkRemoteDeleted flags a row whose detail endpoint answered 404. The row
// is kept and drops out of the pending set.
func (db *DB) MarkRemoteDeleted(ctx context.Context, table, remoteID string, now time.Time) (err error) {
	if _, err := db.collection(table); err != nil {
		return err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("mark_deleted", table, start, err) }(time.Now())

	query := fmt.Sprintf("UPDATE %s SET remote_deleted = TRUE, updated_at = ? WHERE remote_id = ?", table)
	return execOne(ctx, db.conn, query, []any{stamp(now), remoteID}, table, remoteID)
}

func execOne(ctx context.Context, ex execer, query string, args []any, table, remoteID string) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, remoteID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, remoteID, err)
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// PendingDetail returns up to limit rows still awaiting a detail fetch, in
// (created_at, remote_id) order, strictly after the cursor when one is given.
func (db *DB) PendingDetail(ctx context.Context, table string, after *models.PendingRef, limit int) (refs []models.PendingRef, err error) {
	if _, err := db.collection(table); err != nil {
		return nil, err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("pending_detail", table, start, err) }(time.Now())

	query := fmt.Sprintf("SELECT remote_id, created_at FROM %s WHERE detail_fetched = FALSE AND remote_deleted = FALSE", table)
	var args []any
	if after != nil {
		query += " AND (created_at > ? OR (created_at = ? AND remote_id > ?))"
		ts := stamp(after.CreatedAt)
		args = append(args, ts, ts, after.RemoteID)
	}
	query += " ORDER BY created_at, remote_id LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending %s: %w", table, err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var ref models.PendingRef
		if err := rows.Scan(&ref.RemoteID, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending %s: %w", table, err)
		}
		ref.CreatedAt = ref.CreatedAt.UTC()
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CountPendingDetail returns the size of the detail backlog.
func (db *DB) CountPendingDetail(ctx context.Context, table string) (int64, error) {
	return db.count(ctx, "count_pending", table, "detail_fetched = FALSE AND remote_deleted = FALSE")
}

// CountEntities returns the number of rows in table.
func (db *DB) CountEntities(ctx context.Context, table string) (int64, error) {
	return db.count(ctx, "count", table, "")
}

func (db *DB) count(ctx context.Context, operation, table, where string) (n int64, err error) {
	if _, err := db.collection(table); err != nil {
		return 0, err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe(operation, table, start, err) }(time.Now())

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// DetailFetchedIDs returns the remote ids whose detail is already stored.
func (db *DB) DetailFetchedIDs(ctx context.Context, table string) (map[string]struct{}, error) {
	ids, err := db.stringColumn(ctx, "detail_fetched_ids", table,
		fmt.Sprintf("SELECT remote_id FROM %s WHERE detail_fetched = TRUE", table))
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// RemoteIDs returns the live remote ids of table in creation order.
func (db *DB) RemoteIDs(ctx context.Context, table string) ([]string, error) {
	return db.stringColumn(ctx, "remote_ids", table,
		fmt.Sprintf("SELECT remote_id FROM %s WHERE remote_deleted = FALSE ORDER BY created_at, remote_id", table))
}

// DistinctValues returns the distinct non-empty values of a mapped column,
// rendered as text and sorted.
func (db *DB) DistinctValues(ctx context.Context, table, column string) ([]string, error) {
	c, err := db.collection(table)
	if err != nil {
		return nil, err
	}
	known := false
	for _, f := range c.Fields {
		if f.Column == column {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("table %s has no mapped column %q", table, column)
	}

	expr := db.dialect.asText(column)
	return db.stringColumn(ctx, "distinct", table, fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s <> '' ORDER BY 1",
		expr, table, column, expr))
}

// stringColumn reads a single text column fully before returning, so the
// caller may write while iterating the result.
func (db *DB) stringColumn(ctx context.Context, operation, table, query string) (out []string, err error) {
	if _, err := db.collection(table); err != nil {
		return nil, err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe(operation, table, start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
