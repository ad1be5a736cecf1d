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
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
)

// MemoryPath opens an in-memory database with either driver.
const MemoryPath = ":memory:"

// DB is the local store handle. It is constructed once by Open and passed
// explicitly to every component that reads or writes entities.
type DB struct {
	conn     *sql.DB
	cfg      *config.DatabaseConfig
	dialect  dialect
	registry *mapping.Registry
	byTable  map[string]*mapping.Collection
}

// Open connects to the configured driver, creates one table per registered
// collection and applies pending migrations.
func Open(cfg *config.DatabaseConfig, registry *mapping.Registry) (*DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if cfg.Path != MemoryPath {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open(d.driver, d.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:     conn,
		cfg:      cfg,
		dialect:  d,
		registry: registry,
		byTable:  make(map[string]*mapping.Collection),
	}
	for _, c := range registry.All() {
		db.byTable[c.Table] = c
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Debug().
		Str("driver", d.driver).
		Str("path", cfg.Path).
		Int("collections", len(db.byTable)).
		Msg("Local store opened")
	return db, nil
}

func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	return db.runVersionedMigrations()
}

// configureConnectionPool sets connection pool parameters. sqlite is limited
// to one connection so an in-memory database stays a single database and
// writes are serialized.
func (db *DB) configureConnectionPool() {
	if db.dialect.singleConn {
		db.conn.SetMaxOpenConns(1)
		db.conn.SetMaxIdleConns(1)
		return
	}
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying SQL connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.dialect.driver
}

// Registry returns the collections this store was opened with.
func (db *DB) Registry() *mapping.Registry {
	return db.registry
}

// Close checkpoints and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return errors.New("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the write-ahead log into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if db.cfg.Path == MemoryPath {
		return nil
	}
	if _, err := db.conn.ExecContext(ctx, db.dialect.checkpointSQL); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// ensureContext applies a 30 second timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}
