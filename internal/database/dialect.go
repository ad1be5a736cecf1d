// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/mapping"
)

// dialect captures the few places where duckdb and sqlite differ.
type dialect struct {
	driver        string
	types         map[mapping.Kind]string
	castTyped     bool
	singleConn    bool
	pendingIndex  bool
	checkpointSQL string
	textCast      string
}

var duckdbDialect = dialect{
	driver: "duckdb",
	types: map[mapping.Kind]string{
		mapping.Text:      "VARCHAR",
		mapping.Integer:   "BIGINT",
		mapping.Real:      "DOUBLE",
		mapping.Bool:      "BOOLEAN",
		mapping.Decimal:   fmt.Sprintf("DECIMAL(%d,%d)", mapping.DecimalPrecision, mapping.DecimalScale),
		mapping.JSON:      "JSON",
		mapping.Timestamp: "TIMESTAMP",
	},
	castTyped:     true,
	checkpointSQL: "CHECKPOINT",
	textCast:      "VARCHAR",
}

// sqlite keeps decimals as canonical text so no precision is lost to REAL.
var sqliteDialect = dialect{
	driver: "sqlite",
	types: map[mapping.Kind]string{
		mapping.Text:      "TEXT",
		mapping.Integer:   "INTEGER",
		mapping.Real:      "REAL",
		mapping.Bool:      "BOOLEAN",
		mapping.Decimal:   "TEXT",
		mapping.JSON:      "TEXT",
		mapping.Timestamp: "TIMESTAMP",
	},
	singleConn:    true,
	pendingIndex:  true,
	checkpointSQL: "PRAGMA wal_checkpoint(TRUNCATE)",
	textCast:      "TEXT",
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "duckdb":
		return duckdbDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

func (d dialect) dsn(cfg *config.DatabaseConfig) string {
	if d.driver == "sqlite" {
		busy := cfg.BusyTimeout.Milliseconds()
		if busy <= 0 {
			busy = 5000
		}
		params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", busy), "_pragma=foreign_keys(1)"}
		if cfg.Path != MemoryPath {
			params = append(params, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
		}
		return cfg.Path + "?" + strings.Join(params, "&")
	}

	if cfg.Path == MemoryPath {
		return ""
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	dsn := fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.Path, threads)
	if cfg.MaxMemory != "" {
		dsn += "&max_memory=" + cfg.MaxMemory
	}
	return dsn
}

func (d dialect) columnType(k mapping.Kind) string {
	return d.types[k]
}

// placeholder returns the bind expression for a column of kind k. duckdb
// parameters are cast to the column type so COALESCE and decimal text binds
// resolve without inference.
func (d dialect) placeholder(k mapping.Kind) string {
	if d.castTyped {
		return "CAST(? AS " + d.types[k] + ")"
	}
	return "?"
}

// selectExpr reads decimals and JSON back as text on every driver.
func (d dialect) selectExpr(column string, k mapping.Kind) string {
	if d.castTyped && (k == mapping.Decimal || k == mapping.JSON) {
		return "CAST(" + column + " AS VARCHAR)"
	}
	return column
}

func (d dialect) asText(column string) string {
	return "CAST(" + column + " AS " + d.textCast + ")"
}

// bind converts a normalized mapping value into a driver argument.
func bind(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return stamp(x)
	}
	return v
}

// stamp normalizes timestamps to UTC microseconds so values read back compare
// equal to what was written.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
