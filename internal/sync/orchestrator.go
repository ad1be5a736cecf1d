// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/flexsync/internal/audit"
	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/metrics"
	"github.com/tomtom215/flexsync/internal/models"
)

// State is the position of a run in the two-phase state machine.
type State int

const (
	StateIdle State = iota
	StatePhase1Running
	StatePhase1Done
	StatePhase2Running
	StateComplete
	// StateRateLimited is the absorbing state of a run halted by sustained
	// throttling or an open circuit. It is a pause, not a failure.
	StateRateLimited
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePhase1Running:
		return "phase1_running"
	case StatePhase1Done:
		return "phase1_done"
	case StatePhase2Running:
		return "phase2_running"
	case StateComplete:
		return "complete"
	case StateRateLimited:
		return "rate_limited"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON reports.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var transitions = map[State][]State{
	StateIdle:          {StatePhase1Running, StatePhase2Running, StateComplete, StateFailed},
	StatePhase1Running: {StatePhase1Done, StateRateLimited, StateFailed},
	StatePhase1Done:    {StatePhase2Running, StateComplete, StateFailed},
	StatePhase2Running: {StateComplete, StateRateLimited, StateFailed},
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Store is the local store surface the orchestrator needs.
// *database.DB implements it.
type Store interface {
	EntityStore
	MarkRemoteDeleted(ctx context.Context, table, remoteID string, now time.Time) error
	PendingDetail(ctx context.Context, table string, after *models.PendingRef, limit int) ([]models.PendingRef, error)
	CountPendingDetail(ctx context.Context, table string) (int64, error)
	DetailFetchedIDs(ctx context.Context, table string) (map[string]struct{}, error)
	RemoteIDs(ctx context.Context, table string) ([]string, error)
	DistinctValues(ctx context.Context, table, column string) ([]string, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Registry *mapping.Registry
	Store    Store
	Fetcher  *Fetcher
	Ledger   *audit.Ledger
	// Progress receives human-readable progress lines. Nil discards them.
	Progress io.Writer
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Options tune orchestration.
type Options struct {
	// MaxErrors fails a run once its per-record errors exceed it. Zero
	// means unlimited.
	MaxErrors       int
	DetailBatchSize int
	ProgressEvery   int
}

// OptionsFromConfig builds Options from configuration.
func OptionsFromConfig(cfg *config.SyncConfig) Options {
	return Options{
		MaxErrors:       cfg.MaxErrors,
		DetailBatchSize: cfg.DetailBatchSize,
		ProgressEvery:   cfg.ProgressEvery,
	}
}

// RunReport summarizes one run of one collection.
type RunReport struct {
	Collection string           `json:"collection"`
	RunID      string           `json:"run_id"`
	Mode       models.SyncMode  `json:"mode"`
	Status     models.RunStatus `json:"status"`
	State      State            `json:"state"`
	Stats      models.SyncStats `json:"stats"`
	// Missing is the missing-ID set size computed at the end of Phase 1,
	// or -1 when Phase 1 did not complete for a two-phase collection.
	Missing  int           `json:"missing"`
	Pending  int64         `json:"pending"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Halted reports whether the run stopped on throttling or an open circuit.
func (r *RunReport) Halted() bool { return r.State == StateRateLimited }

// Orchestrator runs the two-phase sync of registered collections. Runs are
// sequential: one collection, one request at a time.
type Orchestrator struct {
	deps       Deps
	opts       Options
	reconciler *Reconciler
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Progress == nil {
		deps.Progress = io.Discard
	}
	if opts.DetailBatchSize <= 0 {
		opts.DetailBatchSize = 100
	}
	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		reconciler: NewReconciler(deps.Store, deps.Clock),
		now:        deps.Clock,
	}
}

// Registry returns the collection registry.
func (o *Orchestrator) Registry() *mapping.Registry { return o.deps.Registry }

// Run synchronizes one collection. The ledger row is always closed and the
// summary line always printed. A non-nil error means the run failed;
// throttling halts and per-record errors produce a partial run with a nil
// error.
func (o *Orchestrator) Run(ctx context.Context, name string, mode models.SyncMode) (*RunReport, error) {
	coll, ok := o.deps.Registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	if _, err := o.deps.Ledger.RecoverAbandoned(ctx, name); err != nil {
		return nil, fatal("recover abandoned runs", err)
	}
	run, err := o.deps.Ledger.Start(ctx, name, mode)
	if err != nil {
		return nil, fatal("open ledger run", err)
	}
	ctx = logging.ContextWithRunID(ctx, run.ID)

	r := &runner{
		o:    o,
		coll: coll,
		report: &RunReport{
			Collection: name,
			RunID:      run.ID,
			Mode:       mode,
			State:      StateIdle,
			Missing:    -1,
		},
	}

	logging.Ctx(ctx).Info().
		Str("collection", name).
		Str("mode", string(mode)).
		Str("source", coll.Source.String()).
		Bool("two_phase", coll.TwoPhase()).
		Msg("Sync started")

	start := o.now()
	r.execute(ctx, mode)
	finished := o.now()
	r.report.Duration = finished.Sub(start)
	r.report.Status, r.report.Message = r.outcome()

	// Bookkeeping must survive cancellation of the run itself.
	closeCtx := context.WithoutCancel(ctx)
	if coll.TwoPhase() {
		if pending, err := o.deps.Store.CountPendingDetail(closeCtx, coll.Table); err == nil {
			r.report.Pending = pending
			metrics.SetDetailPending(name, pending)
		} else {
			logging.Ctx(ctx).Warn().Err(err).Str("collection", name).Msg("Failed to count pending details")
		}
	}
	if err := o.deps.Ledger.Complete(closeCtx, run, r.report.Stats, r.report.Status, r.report.Message); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("collection", name).Msg("Failed to close ledger run")
		if r.err == nil {
			r.err = fatal("close ledger run", err)
			r.report.Status = models.RunStatusFailed
			r.report.Message = r.err.Error()
		}
	}
	metrics.RecordRun(name, string(r.report.Status), r.report.Duration, finished)
	printSummary(o.deps.Progress, r.report)

	event := logging.Ctx(ctx).Info()
	switch r.report.Status {
	case models.RunStatusPartial:
		event = logging.Ctx(ctx).Warn()
	case models.RunStatusFailed:
		event = logging.Ctx(ctx).Error().Err(r.err)
	}
	event.
		Str("collection", name).
		Str("status", string(r.report.Status)).
		Str("state", r.report.State.String()).
		Int("fetched", r.report.Stats.Fetched).
		Int("inserted", r.report.Stats.Inserted).
		Int("updated", r.report.Stats.Updated).
		Int("details", r.report.Stats.DetailsFetched).
		Int("not_found", r.report.Stats.NotFound).
		Int("errors", r.report.Stats.Failed).
		Int64("pending", r.report.Pending).
		Dur("duration", r.report.Duration).
		Msg("Sync finished")

	if r.report.Status == models.RunStatusFailed {
		return r.report, r.err
	}
	return r.report, nil
}

// RunAll runs the named collections (all when empty) in dependency order.
// It stops early on a credential failure, a throttling halt or
// cancellation; other failures are collected and the next collection runs.
func (o *Orchestrator) RunAll(ctx context.Context, names []string, mode models.SyncMode) ([]*RunReport, error) {
	colls, err := o.deps.Registry.Ordered(names)
	if err != nil {
		return nil, err
	}
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	var (
		reports []*RunReport
		errs    []error
	)
	for _, coll := range colls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report, err := o.Run(ctx, coll.Name, mode)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", coll.Name, err))
			if report == nil || errors.Is(err, ErrUnauthorized) {
				break
			}
		}
		if report != nil && report.Halted() {
			logging.Ctx(ctx).Warn().
				Str("collection", coll.Name).
				Msg("Remote is throttling, remaining collections deferred to the next run")
			break
		}
	}
	return reports, errors.Join(errs...)
}

func (o *Orchestrator) parents(ctx context.Context, coll *mapping.Collection) ([]string, error) {
	parent, ok := o.deps.Registry.Get(coll.Parent)
	if !ok {
		return nil, fmt.Errorf("%w: parent %s of %s", ErrUnknownCollection, coll.Parent, coll.Name)
	}
	if coll.Source == mapping.SourceReferenced {
		return o.deps.Store.DistinctValues(ctx, parent.Table, coll.ParentColumn)
	}
	return o.deps.Store.RemoteIDs(ctx, parent.Table)
}

// runner holds the mutable state of one run.
type runner struct {
	o      *Orchestrator
	coll   *mapping.Collection
	report *RunReport

	err         error
	halt        error
	interrupted bool
}

func (r *runner) transition(ctx context.Context, to State) {
	from := r.report.State
	if !from.CanTransition(to) {
		logging.Ctx(ctx).Error().
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Invalid sync state transition")
	}
	r.report.State = to
	logging.Ctx(ctx).Debug().
		Str("collection", r.coll.Name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Sync state transition")
}

func (r *runner) execute(ctx context.Context, mode models.SyncMode) {
	if mode.RunsList() {
		r.transition(ctx, StatePhase1Running)
		if !r.listPhase(ctx) {
			return
		}
		r.transition(ctx, StatePhase1Done)
	}
	if mode.RunsDetails() && r.coll.TwoPhase() {
		r.transition(ctx, StatePhase2Running)
		if !r.detailPhase(ctx) {
			return
		}
	}
	r.transition(ctx, StateComplete)
}

// maxMessageLen bounds the error text stored on a ledger row.
const maxMessageLen = 1024

func (r *runner) outcome() (models.RunStatus, string) {
	switch {
	case r.err != nil:
		return models.RunStatusFailed, logging.Truncate(r.err.Error(), maxMessageLen)
	case r.interrupted:
		return models.RunStatusPartial, "interrupted"
	case r.halt != nil:
		if errors.Is(r.halt, ErrCircuitOpen) {
			return models.RunStatusPartial, "halted: circuit breaker open"
		}
		return models.RunStatusPartial, "halted: rate limited"
	case r.report.Stats.Failed > 0:
		return models.RunStatusPartial, fmt.Sprintf("%d records failed", r.report.Stats.Failed)
	}
	return models.RunStatusSuccess, ""
}

func (r *runner) fail(ctx context.Context, err error) {
	r.err = err
	r.transition(ctx, StateFailed)
}

// handle processes an error from a remote call or reconciliation and
// reports whether the run must stop.
func (r *runner) handle(ctx context.Context, err error, remoteID string) bool {
	var (
		pe *PaginationError
		fe *FatalError
	)
	switch {
	case ctx.Err() != nil:
		r.interrupted = true
		return true
	case errors.Is(err, ErrUnauthorized):
		r.fail(ctx, err)
		return true
	case IsThrottleHalt(err):
		r.halt = err
		r.transition(ctx, StateRateLimited)
		logging.Ctx(ctx).Warn().Err(err).Str("collection", r.coll.Name).Msg("Run halted, progress preserved")
		return true
	case errors.As(err, &pe), errors.As(err, &fe):
		r.fail(ctx, err)
		return true
	}

	r.report.Stats.Failed++
	metrics.RecordOutcome(r.coll.Name, "failed")
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("collection", r.coll.Name).
		Str("remote_id", remoteID).
		Msg("Record skipped")

	if limit := r.o.opts.MaxErrors; limit > 0 && r.report.Stats.Failed > limit {
		r.fail(ctx, fmt.Errorf("too many errors: %d exceeds the limit of %d", r.report.Stats.Failed, limit))
		return true
	}
	return false
}

func (r *runner) count(outcome Outcome) {
	switch outcome {
	case OutcomeInserted:
		r.report.Stats.Inserted++
	case OutcomeUpdated:
		r.report.Stats.Updated++
	}
	metrics.RecordOutcome(r.coll.Name, outcome.String())
}

// listPhase reconciles every enumerated record in page order. It returns
// false when the run stopped.
func (r *runner) listPhase(ctx context.Context) bool {
	o, coll := r.o, r.coll
	stats := &r.report.Stats
	fmt.Fprintf(o.deps.Progress, "[%s] phase 1: enumerating (%s)\n", coll.Name, coll.Source)
	prog := newProgress(o.deps.Progress, coll.Name, "list", 0, o.opts.ProgressEvery, o.now)

	var seen map[string]struct{}
	if coll.TwoPhase() {
		seen = make(map[string]struct{})
	}

	for batch, err := range o.deps.Fetcher.Enumerate(ctx, coll, o.parents) {
		if err != nil {
			if r.handle(ctx, err, batch.Parent) {
				return false
			}
			continue
		}
		prog.setTotal(batch.TotalElements)

		for _, doc := range batch.Records {
			if ctx.Err() != nil {
				r.interrupted = true
				return false
			}
			stats.Fetched++
			id, _ := coll.RemoteID(doc)

			outcome, err := o.reconciler.ReconcileList(ctx, coll, doc)
			if err != nil {
				if r.handle(ctx, err, id) {
					return false
				}
				prog.tick(stats)
				continue
			}
			r.count(outcome)
			if seen != nil {
				seen[id] = struct{}{}
			}
			prog.tick(stats)
		}
	}

	if seen != nil {
		fetched, err := o.deps.Store.DetailFetchedIDs(ctx, coll.Table)
		if err != nil {
			r.handle(ctx, fatal("load detail state of "+coll.Name, err), "")
			return false
		}
		missing := 0
		for id := range seen {
			if _, done := fetched[id]; !done {
				missing++
			}
		}
		r.report.Missing = missing
	}

	fmt.Fprintf(o.deps.Progress, "[%s] phase 1 done: fetched=%d inserted=%d updated=%d errors=%d\n",
		coll.Name, stats.Fetched, stats.Inserted, stats.Updated, stats.Failed)
	logging.Ctx(ctx).Info().
		Str("collection", coll.Name).
		Int("fetched", stats.Fetched).
		Int("missing", r.report.Missing).
		Msg("Phase 1 complete")
	return true
}

// detailPhase drains the pending set in (created_at, remote_id) order. The
// cursor moves past failed records so each is attempted once per run; they
// stay pending for the next run.
func (r *runner) detailPhase(ctx context.Context) bool {
	o, coll := r.o, r.coll
	stats := &r.report.Stats

	total, err := o.deps.Store.CountPendingDetail(ctx, coll.Table)
	if err != nil {
		r.handle(ctx, fatal("count pending details of "+coll.Name, err), "")
		return false
	}
	fmt.Fprintf(o.deps.Progress, "[%s] phase 2: %d records pending detail\n", coll.Name, total)
	prog := newProgress(o.deps.Progress, coll.Name, "detail", total, o.opts.ProgressEvery, o.now)

	var after *models.PendingRef
	for {
		if ctx.Err() != nil {
			r.interrupted = true
			return false
		}
		refs, err := o.deps.Store.PendingDetail(ctx, coll.Table, after, o.opts.DetailBatchSize)
		if err != nil {
			r.handle(ctx, fatal("load pending details of "+coll.Name, err), "")
			return false
		}
		if len(refs) == 0 {
			break
		}

		for _, ref := range refs {
			if ctx.Err() != nil {
				r.interrupted = true
				return false
			}
			if stop := r.detailOne(ctx, ref.RemoteID); stop {
				return false
			}
			prog.tick(stats)
		}
		after = &refs[len(refs)-1]
	}

	fmt.Fprintf(o.deps.Progress, "[%s] phase 2 done: details=%d not_found=%d errors=%d\n",
		coll.Name, stats.DetailsFetched, stats.NotFound, stats.Failed)
	logging.Ctx(ctx).Info().
		Str("collection", coll.Name).
		Int("details", stats.DetailsFetched).
		Int("not_found", stats.NotFound).
		Msg("Phase 2 complete")
	return true
}

// detailOne fetches and merges one record. It reports whether the run must stop.
func (r *runner) detailOne(ctx context.Context, remoteID string) bool {
	o, coll := r.o, r.coll
	stats := &r.report.Stats

	doc, found, err := o.deps.Fetcher.FetchDetail(ctx, coll, remoteID)
	if err != nil {
		return r.handle(ctx, err, remoteID)
	}
	if !found {
		if err := o.deps.Store.MarkRemoteDeleted(ctx, coll.Table, remoteID, o.now()); err != nil {
			return r.handle(ctx, fatal("mark "+coll.Name+" deleted", err), remoteID)
		}
		stats.NotFound++
		metrics.RecordOutcome(coll.Name, "not_found")
		logging.Ctx(ctx).Debug().Str("collection", coll.Name).Str("remote_id", remoteID).Msg("Record gone upstream")
		return false
	}

	if id, ok := coll.RemoteID(doc); ok && id != remoteID {
		return r.handle(ctx, &MappingError{
			Collection: coll.Name,
			RemoteID:   remoteID,
			Err:        fmt.Errorf("detail payload carries id %s", id),
		}, remoteID)
	}

	outcome, err := o.reconciler.ReconcileDetail(ctx, coll, doc)
	if err != nil {
		return r.handle(ctx, err, remoteID)
	}
	stats.DetailsFetched++
	if outcome == OutcomeInserted {
		stats.Inserted++
	}
	metrics.RecordOutcome(coll.Name, "detail")
	return false
}
