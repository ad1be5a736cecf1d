// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/flexsync/internal/cache"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/models"
	flexsync "github.com/tomtom215/flexsync/internal/sync"
)

// StatusStore is the local store surface the API reads.
type StatusStore interface {
	Ping(ctx context.Context) error
	CollectionSummary(ctx context.Context, name string) (*models.CollectionSummary, error)
}

// RunLedger is the ledger surface the API reads.
type RunLedger interface {
	Recent(ctx context.Context, n int) ([]models.SyncRun, error)
	History(ctx context.Context, entityType string, n int) ([]models.SyncRun, error)
	LastSuccessful(ctx context.Context) (map[string]models.SyncRun, error)
}

// SyncTrigger is the manager surface the API drives.
type SyncTrigger interface {
	TriggerSync(ctx context.Context, collection string, mode models.SyncMode) error
	Running() (bool, string)
	LastSyncTime() time.Time
}

// summariesKey is the cache key of the collections listing.
const summariesKey = "collections"

// Handler serves the status API.
type Handler struct {
	store     StatusStore
	ledger    RunLedger
	trigger   SyncTrigger
	registry  *mapping.Registry
	summaries *cache.Cache[[]*models.CollectionSummary]
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSummaryCache caches the collections listing for ttl. Zero disables it.
func WithSummaryCache(ttl time.Duration) HandlerOption {
	return func(h *Handler) {
		if ttl > 0 {
			h.summaries = cache.New[[]*models.CollectionSummary](ttl)
		}
	}
}

// NewHandler creates a Handler.
func NewHandler(store StatusStore, ledger RunLedger, trigger SyncTrigger, registry *mapping.Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:     store,
		ledger:    ledger,
		trigger:   trigger,
		registry:  registry,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	}, time.Now())
}

// HealthReady reports whether the local store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database is not reachable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}

// RunsRequest holds the query of GET /runs.
type RunsRequest struct {
	Limit      int    `json:"limit" validate:"min=1,max=1000"`
	Collection string `json:"collection" validate:"omitempty,max=64"`
}

// Runs lists recent ledger rows, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := RunsRequest{
		Limit:      getIntParam(r, "limit", 50),
		Collection: r.URL.Query().Get("collection"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	var (
		runs []models.SyncRun
		err  error
	)
	if req.Collection != "" {
		if _, ok := h.registry.Get(req.Collection); !ok {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "unknown collection", nil)
			return
		}
		runs, err = h.ledger.History(r.Context(), req.Collection, req.Limit)
	} else {
		runs, err = h.ledger.Recent(r.Context(), req.Limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to read sync runs", err)
		return
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	respondData(w, http.StatusOK, runs, start)
}

// Collections summarizes every registered collection.
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.summaries != nil {
		if cached, ok := h.summaries.Get(summariesKey); ok {
			respondData(w, http.StatusOK, cached, start)
			return
		}
	}

	last, err := h.ledger.LastSuccessful(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to read sync runs", err)
		return
	}

	summaries := make([]*models.CollectionSummary, 0, len(h.registry.Names()))
	for _, name := range h.registry.Names() {
		s, err := h.store.CollectionSummary(r.Context(), name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to summarize "+name, err)
			return
		}
		if run, ok := last[name]; ok {
			s.LastSuccess = &run
		}
		summaries = append(summaries, s)
	}
	if h.summaries != nil {
		h.summaries.Set(summariesKey, summaries)
	}
	respondData(w, http.StatusOK, summaries, start)
}

// SyncStatusResponse is the body of GET /sync/status.
type SyncStatusResponse struct {
	Running    bool       `json:"running"`
	Collection string     `json:"collection,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// SyncStatus reports whether a sync is executing.
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	running, coll := h.trigger.Running()
	resp := SyncStatusResponse{Running: running, Collection: coll}
	if t := h.trigger.LastSyncTime(); !t.IsZero() {
		resp.LastSyncAt = &t
	}
	respondData(w, http.StatusOK, resp, time.Now())
}

// TriggerSync starts a sync of one collection, or of every configured
// collection when {collection} is "all".
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	coll := chi.URLParam(r, "collection")
	if coll != flexsync.AllCollections {
		if _, ok := h.registry.Get(coll); !ok {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "unknown collection", nil)
			return
		}
	}
	mode, err := models.ParseSyncMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	err = h.trigger.TriggerSync(r.Context(), coll, mode)
	switch {
	case errors.Is(err, flexsync.ErrSyncInProgress):
		respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", "a sync is already running", nil)
		return
	case err != nil:
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "sync could not be started", err)
		return
	}
	if h.summaries != nil {
		h.summaries.Clear()
	}

	logging.Ctx(r.Context()).Info().
		Str("collection", sanitizeLogValue(coll)).
		Str("mode", string(mode)).
		Msg("Sync triggered via API")
	respondData(w, http.StatusAccepted, models.TriggerResponse{Collection: coll, Mode: mode, Accepted: true}, start)
}
