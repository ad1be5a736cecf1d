// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flexsync/internal/audit"
	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/database"
	"github.com/tomtom215/flexsync/internal/mapping"
)

const testToken = "test-token"

func widgetsCollection() *mapping.Collection {
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
			{Remote: "note", Column: "note", Kind: mapping.Text, DetailOnly: true},
			{Remote: "owner.id", Column: "owner_id", Kind: mapping.Text, DetailOnly: true},
		},
	}
}

func testRegistry() *mapping.Registry {
	return mapping.MustRegistry(
		widgetsCollection(),
		&mapping.Collection{
			Name:         "owners",
			Table:        "owners",
			Source:       mapping.SourceReferenced,
			Parent:       "widgets",
			ParentColumn: "owner_id",
			DetailPath:   "/owner",
			Fields: []mapping.Field{
				{Remote: "name", Column: "name", Kind: mapping.Text, DetailOnly: true},
			},
		},
		&mapping.Collection{
			Name:        "parts",
			Table:       "parts",
			Source:      mapping.SourcePerParent,
			Path:        "/part",
			Parent:      "widgets",
			ParentParam: "widgetId",
			InjectField: "widgetId",
			Fields: []mapping.Field{
				{Remote: "name", Column: "name", Kind: mapping.Text},
				{Remote: "widgetId", Column: "widget_id", Kind: mapping.Text},
			},
		},
		&mapping.Collection{
			Name:   "kinds",
			Table:  "kinds",
			Source: mapping.SourceUnpaged,
			Path:   "/kind",
			Fields: []mapping.Field{
				{Remote: "name", Column: "name", Kind: mapping.Text},
			},
		},
	)
}

// fakeFlex is an in-process Flex API. All fields are guarded by mu.
type fakeFlex struct {
	mu sync.Mutex

	widgets []map[string]any
	parts   map[string][]map[string]any
	kinds   []map[string]any

	// detailServed counts 200 responses per detail id.
	detailServed map[string]int
	// pageRequests counts list page requests per page number.
	pageRequests map[int]int
	requests     int

	// throttleAfter makes detail calls answer 429 once this many detail
	// responses were served. Negative disables it.
	throttleAfter int
	throttleAll   bool
	rejectAuth    bool
	failDetail    map[string]bool
	goneDetail    map[string]bool
	dropTotals    bool
	// shiftTotalPages changes totalPages on pages after the first.
	shiftTotalPages bool
}

func newFakeFlex(n int) *fakeFlex {
	f := &fakeFlex{
		parts:         make(map[string][]map[string]any),
		detailServed:  make(map[string]int),
		pageRequests:  make(map[int]int),
		throttleAfter: -1,
		failDetail:    make(map[string]bool),
		goneDetail:    make(map[string]bool),
	}
	for i := 1; i <= n; i++ {
		f.widgets = append(f.widgets, map[string]any{
			"id":     widgetID(i),
			"name":   fmt.Sprintf("Widget %d", i),
			"price":  fmt.Sprintf("%d.50", i),
			"active": i%2 == 0,
		})
	}
	return f
}

func widgetID(i int) string { return fmt.Sprintf("w%03d", i) }

func ownerOf(id string) string {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, "w"))
	return fmt.Sprintf("o%d", n%2+1)
}

func (f *fakeFlex) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /widget", f.listWidgets)
	mux.HandleFunc("GET /widget/{id}", f.widgetDetail)
	mux.HandleFunc("GET /owner/{id}", f.ownerDetail)
	mux.HandleFunc("GET /part", f.listParts)
	mux.HandleFunc("GET /kind", f.listKinds)
	mux.HandleFunc("GET /payment-term", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []any{})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		throttled, rejected := f.throttleAll, f.rejectAuth
		f.mu.Unlock()
		if rejected || r.Header.Get("X-Auth-Token") != testToken {
			http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
			return
		}
		if throttled {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func (f *fakeFlex) listWidgets(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageRequests[page]++

	total := len(f.widgets)
	pages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)

	body := map[string]any{"content": f.widgets[start:end]}
	if !f.dropTotals {
		if f.shiftTotalPages && page > 0 {
			pages++
		}
		body["totalElements"] = total
		body["totalPages"] = pages
	}
	writeJSON(w, body)
}

func (f *fakeFlex) widgetDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	defer f.mu.Unlock()

	served := 0
	for _, n := range f.detailServed {
		served += n
	}
	switch {
	case f.throttleAfter >= 0 && served >= f.throttleAfter:
		http.Error(w, "slow down", http.StatusTooManyRequests)
		return
	case f.goneDetail[id]:
		http.Error(w, "not found", http.StatusNotFound)
		return
	case f.failDetail[id]:
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	for _, wd := range f.widgets {
		if wd["id"] != id {
			continue
		}
		detail := make(map[string]any, len(wd)+2)
		for k, v := range wd {
			detail[k] = v
		}
		detail["note"] = "detail of " + id
		detail["owner"] = map[string]any{"id": ownerOf(id)}
		f.detailServed[id]++
		writeJSON(w, detail)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (f *fakeFlex) ownerDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	f.detailServed[id]++
	f.mu.Unlock()
	writeJSON(w, map[string]any{"id": id, "name": "Owner " + id})
}

func (f *fakeFlex) listParts(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("widgetId")
	f.mu.Lock()
	defer f.mu.Unlock()
	parts, ok := f.parts[parent]
	if !ok {
		http.Error(w, "no parts", http.StatusNotFound)
		return
	}
	writeJSON(w, parts)
}

func (f *fakeFlex) listKinds(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, map[string]any{"content": f.kinds})
}

func (f *fakeFlex) set(fn func(f *fakeFlex)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFlex) served(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailServed[id]
}

func (f *fakeFlex) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// noSleep records waits instead of sleeping.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

// tick is a clock that advances one second per reading.
type tick struct {
	mu sync.Mutex
	t  time.Time
}

func newTick() *tick {
	return &tick{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tick) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func testPolicy() Policy {
	return Policy{
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		ThrottleDelay: 2 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
	}
}

// stack is a fully wired orchestrator over a fake API and in-memory sqlite.
type stack struct {
	flex   *fakeFlex
	server *httptest.Server
	db     *database.DB
	store  *audit.MemoryStore
	ledger *audit.Ledger
	orch   *Orchestrator
	out    *bytes.Buffer
}

func newStack(t *testing.T, flex *fakeFlex, opts Options) *stack {
	t.Helper()

	srv := httptest.NewServer(flex.handler())
	t.Cleanup(srv.Close)

	db := openTestDB(t)

	client := NewFlexClient(&config.RemoteConfig{
		BaseURL:    srv.URL,
		Token:      testToken,
		AuthHeader: "X-Auth-Token",
		Timeout:    5 * time.Second,
		PageSize:   4,
	})
	exec := NewExecutor(testPolicy(), WithSleep((&noSleep{}).sleep))
	store := audit.NewMemoryStore(100)
	ledger := audit.NewLedger(store, nil)
	out := &bytes.Buffer{}

	orch := NewOrchestrator(Deps{
		Registry: testRegistry(),
		Store:    db,
		Fetcher:  NewFetcher(client, exec, 4),
		Ledger:   ledger,
		Progress: out,
	}, opts)

	return &stack{flex: flex, server: srv, db: db, store: store, ledger: ledger, orch: orch, out: out}
}

// newTestFetcher wires a Fetcher to flex with the given page size.
func newTestFetcher(t *testing.T, flex *fakeFlex, pageSize int) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(flex.handler())
	t.Cleanup(srv.Close)
	client := NewFlexClient(&config.RemoteConfig{
		BaseURL:    srv.URL,
		Token:      testToken,
		AuthHeader: "X-Auth-Token",
		Timeout:    5 * time.Second,
	})
	return NewFetcher(client, NewExecutor(testPolicy(), WithSleep((&noSleep{}).sleep)), pageSize)
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: database.MemoryPath}, testRegistry())
	if err != nil {
		t.Fatalf("database.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
