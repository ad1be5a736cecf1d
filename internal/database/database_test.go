// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/models"
)

func widgets() *mapping.Collection {
	return &mapping.Collection{
		Name:       "widgets",
		Table:      "widgets",
		Source:     mapping.SourcePaged,
		Path:       "/widget",
		DetailPath: "/widget",
		Fields: []mapping.Field{
			{Remote: "name", Column: "name", Kind: mapping.Text},
			{Remote: "price", Column: "price", Kind: mapping.Decimal},
			{Remote: "active", Column: "active", Kind: mapping.Bool},
			{Remote: "qty", Column: "qty", Kind: mapping.Integer},
			{Remote: "note", Column: "note", Kind: mapping.Text, DetailOnly: true},
			{Remote: "owner.id", Column: "owner_id", Kind: mapping.Text, DetailOnly: true},
		},
	}
}

func owners() *mapping.Collection {
	return &mapping.Collection{
		Name:         "owners",
		Table:        "owners",
		Source:       mapping.SourceReferenced,
		Parent:       "widgets",
		ParentColumn: "owner_id",
		DetailPath:   "/owner",
		Fields: []mapping.Field{
			{Remote: "name", Column: "name", Kind: mapping.Text, DetailOnly: true},
		},
	}
}

func testRegistry() *mapping.Registry {
	return mapping.MustRegistry(widgets(), owners())
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", Path: MemoryPath}, testRegistry())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(id string, values ...models.ColumnValue) *models.EntityRecord {
	return &models.EntityRecord{RemoteID: id, Values: values, Payload: `{"id":"` + id + `"}`}
}

func col(name string, v any) models.ColumnValue {
	return models.ColumnValue{Column: name, Value: v}
}

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestOpen_MigrationsAppliedOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flexsync.db")
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: path}

	for i := 0; i < 2; i++ {
		db, err := Open(cfg, testRegistry())
		if err != nil {
			t.Fatalf("Open() #%d error: %v", i, err)
		}
		version, err := db.GetCurrentSchemaVersion(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if version != len(migrations) {
			t.Errorf("schema version = %d, want %d", version, len(migrations))
		}
		history, err := db.GetMigrationHistory(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != len(migrations) {
			t.Errorf("history has %d rows, want %d", len(history), len(migrations))
		}
		if err := db.Close(); err != nil {
			t.Fatalf("Close() error: %v", err)
		}
	}
}

func TestOpen_AddsNewlyMappedColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flexsync.db")
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: path}

	db, err := Open(cfg, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertEntity(context.Background(), "widgets", record("w1", col("name", "Alpha")), t0); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	extended := widgets()
	extended.Fields = append(extended.Fields, mapping.Field{Remote: "color", Column: "color", Kind: mapping.Text})
	db, err = Open(cfg, mapping.MustRegistry(extended))
	if err != nil {
		t.Fatalf("reopen with extra column: %v", err)
	}
	defer db.Close()

	e, err := db.FindEntity(context.Background(), "widgets", "w1")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := e.Values["color"]; !ok || v != nil {
		t.Errorf("color = %v (present %v), want nil", v, ok)
	}
}

func TestInsertFindUpdate(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	price := decimal.RequireFromString("12.50")
	id, err := db.InsertEntity(ctx, "widgets",
		record("w1", col("name", "Alpha"), col("price", price), col("active", true), col("qty", int64(3))), t0)
	if err != nil {
		t.Fatalf("InsertEntity() error: %v", err)
	}

	e, err := db.FindEntity(ctx, "widgets", "w1")
	if err != nil {
		t.Fatalf("FindEntity() error: %v", err)
	}
	if e.ID != id || e.RemoteID != "w1" {
		t.Errorf("ids = %s/%s, want %s/w1", e.ID, e.RemoteID, id)
	}
	if e.DetailFetched || e.DetailFetchedAt != nil || e.RemoteDeleted {
		t.Errorf("new row flags = fetched %v at %v deleted %v", e.DetailFetched, e.DetailFetchedAt, e.RemoteDeleted)
	}
	if e.Values["name"] != "Alpha" {
		t.Errorf("name = %v", e.Values["name"])
	}
	stored, err := decimal.NewFromString(e.Values["price"].(string))
	if err != nil || !stored.Equal(price) {
		t.Errorf("price = %v, want %s", e.Values["price"], price)
	}
	if !e.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", e.CreatedAt, t0)
	}

	later := t0.Add(time.Hour)
	if err := db.UpdateEntity(ctx, "widgets", record("w1", col("name", "Beta"), col("qty", nil)), later); err != nil {
		t.Fatalf("UpdateEntity() error: %v", err)
	}
	e, _ = db.FindEntity(ctx, "widgets", "w1")
	if e.Values["name"] != "Beta" || e.Values["qty"] != nil {
		t.Errorf("after update name=%v qty=%v", e.Values["name"], e.Values["qty"])
	}
	if !e.CreatedAt.Equal(t0) || !e.UpdatedAt.Equal(later) {
		t.Errorf("timestamps created=%v updated=%v", e.CreatedAt, e.UpdatedAt)
	}

	if _, err := db.FindEntity(ctx, "widgets", "nope"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("FindEntity(missing) = %v, want ErrEntityNotFound", err)
	}
	if err := db.UpdateEntity(ctx, "widgets", record("nope"), later); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("UpdateEntity(missing) = %v, want ErrEntityNotFound", err)
	}
}

func TestInsertEntity_DuplicateRemoteIDRejected(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertEntity(ctx, "widgets", record("w1"), t0); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertEntity(ctx, "widgets", record("w1"), t0); err == nil {
		t.Fatal("expected unique violation on second insert")
	}
	if n, _ := db.CountEntities(ctx, "widgets"); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestMergeDetail_NullKeepsExistingValue(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertEntity(ctx, "widgets", record("w1", col("name", "Alpha"), col("active", true)), t0); err != nil {
		t.Fatal(err)
	}

	detail := &models.EntityRecord{
		RemoteID: "w1",
		Values:   []models.ColumnValue{col("name", nil), col("active", false), col("note", "fragile")},
		Payload:  `{"id":"w1","note":"fragile"}`,
	}
	fetchedAt := t0.Add(time.Minute)
	if err := db.MergeDetail(ctx, "widgets", detail, fetchedAt); err != nil {
		t.Fatalf("MergeDetail() error: %v", err)
	}

	e, err := db.FindEntity(ctx, "widgets", "w1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Values["name"] != "Alpha" {
		t.Errorf("name = %v, want Alpha kept over null", e.Values["name"])
	}
	if e.Values["note"] != "fragile" {
		t.Errorf("note = %v, want fragile", e.Values["note"])
	}
	if active, _ := e.Values["active"].(int64); active != 0 {
		t.Errorf("active = %v, want false stored as 0", e.Values["active"])
	}
	if !e.DetailFetched || e.DetailFetchedAt == nil || !e.DetailFetchedAt.Equal(fetchedAt) {
		t.Errorf("detail flags = %v at %v", e.DetailFetched, e.DetailFetchedAt)
	}
	if e.DetailPayload == nil || *e.DetailPayload != detail.Payload {
		t.Errorf("detail payload = %v", e.DetailPayload)
	}
	if e.Payload != `{"id":"w1"}` {
		t.Errorf("list payload overwritten: %s", e.Payload)
	}
}

func TestInsertDetailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	list := record("w1", col("name", "Alpha"), col("active", true))
	detail := record("w1", col("name", nil), col("note", "fragile"))
	id, err := db.InsertDetailed(ctx, "widgets", list, detail, t0)
	if err != nil {
		t.Fatalf("InsertDetailed() error: %v", err)
	}

	e, err := db.FindEntity(ctx, "widgets", "w1")
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != id || e.Values["name"] != "Alpha" || e.Values["note"] != "fragile" {
		t.Errorf("entity = %+v", e)
	}
	if !e.DetailFetched || e.DetailPayload == nil {
		t.Errorf("detail flags = %v, payload %v", e.DetailFetched, e.DetailPayload)
	}
	if n, _ := db.CountPendingDetail(ctx, "widgets"); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestInsertDetailed_RollsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seed      bool
		list      *models.EntityRecord
		detail    *models.EntityRecord
		wantRows  int64
		wantNoRow string
	}{
		{
			name:      "merge matches no row",
			list:      record("w1", col("name", "Alpha")),
			detail:    record("w2", col("note", "fragile")),
			wantNoRow: "w1",
		},
		{
			name:      "merge names an unknown column",
			list:      record("w1", col("name", "Alpha")),
			detail:    record("w1", col("missing", "x")),
			wantNoRow: "w1",
		},
		{
			name:     "duplicate remote id",
			seed:     true,
			list:     record("w0", col("name", "Second")),
			detail:   record("w0", col("note", "fragile")),
			wantRows: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			db := newTestDB(t)

			if tt.seed {
				if _, err := db.InsertEntity(ctx, "widgets", record("w0", col("name", "First")), t0); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := db.InsertDetailed(ctx, "widgets", tt.list, tt.detail, t0); err == nil {
				t.Fatal("InsertDetailed() succeeded, want error")
			}

			if n, _ := db.CountEntities(ctx, "widgets"); n != tt.wantRows {
				t.Errorf("count = %d, want %d", n, tt.wantRows)
			}
			if tt.wantNoRow != "" {
				if _, err := db.FindEntity(ctx, "widgets", tt.wantNoRow); !errors.Is(err, ErrEntityNotFound) {
					t.Errorf("FindEntity(%s) error = %v, want ErrEntityNotFound", tt.wantNoRow, err)
				}
			}
			if tt.seed {
				e, err := db.FindEntity(ctx, "widgets", "w0")
				if err != nil || e.Values["name"] != "First" || e.DetailFetched {
					t.Errorf("seeded row changed: %+v, %v", e, err)
				}
			}
		})
	}
}

func TestPendingDetail_KeysetWalk(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	// w2 and w3 share a timestamp so the remote_id tiebreak is exercised.
	inserts := []struct {
		id string
		at time.Time
	}{
		{"w1", t0},
		{"w3", t0.Add(time.Second)},
		{"w2", t0.Add(time.Second)},
		{"w4", t0.Add(2 * time.Second)},
		{"w5", t0.Add(3 * time.Second)},
	}
	for _, in := range inserts {
		if _, err := db.InsertEntity(ctx, "widgets", record(in.id), in.at); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.MergeDetail(ctx, "widgets", record("w4"), t0); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkRemoteDeleted(ctx, "widgets", "w5", t0); err != nil {
		t.Fatal(err)
	}

	var got []string
	var cursor *models.PendingRef
	for {
		refs, err := db.PendingDetail(ctx, "widgets", cursor, 2)
		if err != nil {
			t.Fatalf("PendingDetail() error: %v", err)
		}
		if len(refs) == 0 {
			break
		}
		for _, r := range refs {
			got = append(got, r.RemoteID)
		}
		last := refs[len(refs)-1]
		cursor = &last
	}

	want := []string{"w1", "w2", "w3"}
	if len(got) != len(want) {
		t.Fatalf("pending = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pending = %v, want %v", got, want)
		}
	}

	n, err := db.CountPendingDetail(ctx, "widgets")
	if err != nil || n != 3 {
		t.Errorf("CountPendingDetail = %d, %v; want 3", n, err)
	}
	fetched, err := db.DetailFetchedIDs(ctx, "widgets")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fetched["w4"]; !ok || len(fetched) != 1 {
		t.Errorf("DetailFetchedIDs = %v, want only w4", fetched)
	}
}

func TestRemoteDeletedClearedByListUpdate(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertEntity(ctx, "widgets", record("w1"), t0); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkRemoteDeleted(ctx, "widgets", "w1", t0); err != nil {
		t.Fatal(err)
	}
	ids, _ := db.RemoteIDs(ctx, "widgets")
	if len(ids) != 0 {
		t.Errorf("RemoteIDs = %v, want deleted row excluded", ids)
	}

	if err := db.UpdateEntity(ctx, "widgets", record("w1"), t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	e, _ := db.FindEntity(ctx, "widgets", "w1")
	if e.RemoteDeleted {
		t.Error("remote_deleted should be cleared when the record is listed again")
	}
	if err := db.MarkRemoteDeleted(ctx, "widgets", "ghost", t0); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("MarkRemoteDeleted(missing) = %v", err)
	}
}

func TestDistinctValues(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	for i, owner := range []any{"o2", "o1", nil, "o2", ""} {
		id := string(rune('a' + i))
		if _, err := db.InsertEntity(ctx, "widgets", record(id), t0); err != nil {
			t.Fatal(err)
		}
		if err := db.MergeDetail(ctx, "widgets", record(id, col("owner_id", owner)), t0); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.DistinctValues(ctx, "widgets", "owner_id")
	if err != nil {
		t.Fatalf("DistinctValues() error: %v", err)
	}
	if len(got) != 2 || got[0] != "o1" || got[1] != "o2" {
		t.Errorf("DistinctValues = %v, want [o1 o2]", got)
	}

	if _, err := db.DistinctValues(ctx, "widgets", "payload"); err == nil {
		t.Error("expected error for unmapped column")
	}
}

func TestCollectionSummary(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"w1", "w2", "w3"} {
		if _, err := db.InsertEntity(ctx, "widgets", record(id), t0); err != nil {
			t.Fatal(err)
		}
	}
	_ = db.MergeDetail(ctx, "widgets", record("w1"), t0)
	_ = db.MarkRemoteDeleted(ctx, "widgets", "w2", t0)

	s, err := db.CollectionSummary(ctx, "widgets")
	if err != nil {
		t.Fatalf("CollectionSummary() error: %v", err)
	}
	if s.Total != 3 || s.DetailPending != 1 || s.RemoteDeleted != 1 || !s.TwoPhase {
		t.Errorf("summary = %+v, want total 3 pending 1 deleted 1", s)
	}
}

func TestUnknownTable(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	if _, err := db.CountEntities(context.Background(), "sync_runs"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("CountEntities(sync_runs) = %v, want ErrUnknownTable", err)
	}
	if _, err := db.CollectionSummary(context.Background(), "invoices"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("CollectionSummary(invoices) = %v, want ErrUnknownTable", err)
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	if _, err := dialectFor("postgres"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	d, err := dialectFor("")
	if err != nil || d.driver != "duckdb" {
		t.Errorf("default dialect = %q, %v", d.driver, err)
	}
	if got := d.placeholder(mapping.Decimal); got != "CAST(? AS DECIMAL(18,4))" {
		t.Errorf("duckdb decimal placeholder = %s", got)
	}
	if got := sqliteDialect.placeholder(mapping.Decimal); got != "?" {
		t.Errorf("sqlite decimal placeholder = %s", got)
	}
}
