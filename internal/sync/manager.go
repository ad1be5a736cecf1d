// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/models"
)

// AllCollections selects every configured collection in TriggerSync.
const AllCollections = "all"

// Runner is the orchestration surface the Manager drives.
type Runner interface {
	Run(ctx context.Context, collection string, mode models.SyncMode) (*RunReport, error)
	RunAll(ctx context.Context, collections []string, mode models.SyncMode) ([]*RunReport, error)
}

// Manager runs syncs on a cron schedule and on demand. At most one sync
// executes at a time: scheduled ticks that find a sync running are skipped
// and manual triggers get ErrSyncInProgress.
type Manager struct {
	runner Runner
	cfg    *config.SyncConfig
	cron   *cron.Cron

	syncMu sync.Mutex // held for the duration of a sync

	mu       sync.RWMutex
	running  bool
	active   string
	lastSync time.Time
	baseCtx  context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(runner Runner, cfg *config.SyncConfig) *Manager {
	logging.Info().
		Str("schedule", cfg.Schedule).
		Strs("collections", cfg.Collections).
		Int("max_errors", cfg.MaxErrors).
		Msg("Sync manager config loaded")

	return &Manager{
		runner: runner,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds(), cron.WithLogger(newCronLogger())),
	}
}

// Start schedules periodic syncs. Runs started by the manager live until
// Stop is called or ctx is canceled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	if m.cfg.Schedule != "" {
		if _, err := m.cron.AddFunc(m.cfg.Schedule, m.scheduledSync); err != nil {
			m.mu.Lock()
			m.running = false
			m.cancel()
			m.mu.Unlock()
			return fmt.Errorf("invalid sync schedule %q: %w", m.cfg.Schedule, err)
		}
		m.cron.Start()
		logging.Info().Str("schedule", m.cfg.Schedule).Msg("Sync scheduler started")
	} else {
		logging.Info().Msg("No sync schedule configured, manual triggers only")
	}
	return nil
}

// Stop halts the schedule, cancels any sync in flight and waits for it to
// close its ledger row.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	<-m.cron.Stop().Done()
	cancel()
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// TriggerSync starts a sync in the background and returns immediately.
// collection may be AllCollections. The sync outlives the caller's request
// but not the manager.
func (m *Manager) TriggerSync(ctx context.Context, collection string, mode models.SyncMode) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	if !m.syncMu.TryLock() {
		m.mu.Unlock()
		return ErrSyncInProgress
	}
	base := m.baseCtx
	m.wg.Add(1)
	m.mu.Unlock()

	// Keep the caller's correlation ID but not its cancellation.
	runCtx := base
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		runCtx = logging.ContextWithCorrelationID(runCtx, id)
	}

	go func() {
		defer m.wg.Done()
		defer m.syncMu.Unlock()
		m.execute(runCtx, collection, mode)
	}()
	return nil
}

// Running reports whether a sync is executing and which collection it covers.
func (m *Manager) Running() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != "", m.active
}

// LastSyncTime returns when the last sync started by the manager finished.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) scheduledSync() {
	if !m.syncMu.TryLock() {
		logging.Info().Msg("Scheduled sync skipped, a sync is already in progress")
		return
	}
	defer m.syncMu.Unlock()

	m.mu.RLock()
	base := m.baseCtx
	m.mu.RUnlock()
	m.wg.Add(1)
	defer m.wg.Done()
	m.execute(base, AllCollections, models.ModeFull)
}

// execute runs one sync. The caller holds syncMu.
func (m *Manager) execute(ctx context.Context, collection string, mode models.SyncMode) {
	m.mu.Lock()
	m.active = collection
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active = ""
		m.lastSync = time.Now()
		m.mu.Unlock()
	}()

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	var err error
	if collection == AllCollections || collection == "" {
		_, err = m.runner.RunAll(ctx, m.cfg.Collections, mode)
	} else {
		_, err = m.runner.Run(ctx, collection, mode)
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("collection", collection).Msg("Sync failed")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func newCronLogger() cronLogger {
	return cronLogger{log: logging.WithComponent("cron")}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
