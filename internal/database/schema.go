// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
)

// createTables creates one table per collection and adds columns that were
// mapped after the table was first created.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, c := range db.registry.All() {
		for _, query := range db.tableCreationQueries(c) {
			if _, err := db.conn.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to execute query: %s: %w", query, err)
			}
		}
		if err := db.addMissingColumns(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) tableCreationQueries(c *mapping.Collection) []string {
	d := db.dialect
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", c.Table)
	b.WriteString("\tid VARCHAR PRIMARY KEY,\n")
	b.WriteString("\tremote_id VARCHAR NOT NULL UNIQUE,\n")
	for _, f := range c.Fields {
		fmt.Fprintf(&b, "\t%s %s,\n", f.Column, d.columnType(f.Kind))
	}
	fmt.Fprintf(&b, "\tpayload %s NOT NULL,\n", d.columnType(mapping.JSON))
	fmt.Fprintf(&b, "\tdetail_payload %s,\n", d.columnType(mapping.JSON))
	b.WriteString("\tdetail_fetched BOOLEAN NOT NULL DEFAULT FALSE,\n")
	b.WriteString("\tdetail_fetched_at TIMESTAMP,\n")
	b.WriteString("\tremote_deleted BOOLEAN NOT NULL DEFAULT FALSE,\n")
	b.WriteString("\tcreated_at TIMESTAMP NOT NULL,\n")
	b.WriteString("\tupdated_at TIMESTAMP NOT NULL\n")
	b.WriteString(")")

	queries := []string{b.String()}
	if d.pendingIndex && c.TwoPhase() {
		queries = append(queries, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_pending ON %s(detail_fetched, created_at, remote_id)",
			c.Table, c.Table))
	}
	return queries
}

// addMissingColumns compares the mapped columns against the live table and
// issues ALTER TABLE for every column the table lacks.
func (db *DB) addMissingColumns(ctx context.Context, c *mapping.Collection) error {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", c.Table))
	if err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", c.Table, err)
	}
	existing, err := rows.Columns()
	closeWithLog(rows, "rows")
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", c.Table, err)
	}

	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[strings.ToLower(col)] = true
	}

	for _, f := range c.Fields {
		if have[f.Column] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.Table, f.Column, db.dialect.columnType(f.Kind))
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", c.Table, f.Column, err)
		}
		logging.Info().Str("table", c.Table).Str("column", f.Column).Msg("Added mapped column")
	}
	return nil
}
