// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/flexsync/internal/models"
)

// MemoryStore implements Store in memory. Data is lost on restart.
type MemoryStore struct {
	runs   []models.SyncRun
	mu     sync.RWMutex
	maxLen int
}

// NewMemoryStore creates a store that keeps at most maxLen runs.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

// Save appends a run, evicting the oldest 10% when full.
func (s *MemoryStore) Save(_ context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			return fmt.Errorf("sync run %s already exists", run.ID)
		}
	}
	if len(s.runs) >= s.maxLen {
		s.runs = s.runs[max(1, s.maxLen/10):]
	}
	s.runs = append(s.runs, *run)
	return nil
}

// Finish stores the completion fields of a running row.
func (s *MemoryStore) Finish(_ context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID != run.ID {
			continue
		}
		if s.runs[i].Status != models.RunStatusRunning {
			return ErrRunClosed
		}
		s.runs[i] = *run
		return nil
	}
	return ErrRunNotFound
}

// Get retrieves a run by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.runs {
		if s.runs[i].ID == id {
			run := s.runs[i]
			return &run, nil
		}
	}
	return nil, ErrRunNotFound
}

// Query returns matching runs newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]models.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []models.SyncRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		if !filter.matches(&s.runs[i]) {
			continue
		}
		results = append(results, s.runs[i])
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}
