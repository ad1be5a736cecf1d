// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a SyncRun.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

// SyncMode selects which phases a run executes.
type SyncMode string

const (
	// ModeFull runs the list phase then the detail phase.
	ModeFull SyncMode = "full"
	// ModeListOnly runs only the list phase.
	ModeListOnly SyncMode = "list-only"
	// ModeDetailsOnly drains the detail backlog without re-enumerating.
	ModeDetailsOnly SyncMode = "details-only"
)

// ParseSyncMode converts user input to a SyncMode. Empty input means full.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeListOnly, "quick":
		return ModeListOnly, nil
	case ModeDetailsOnly:
		return ModeDetailsOnly, nil
	}
	return "", fmt.Errorf("unknown sync mode %q (want full, list-only or details-only)", s)
}

// RunsList reports whether the mode includes the list phase.
func (m SyncMode) RunsList() bool { return m != ModeDetailsOnly }

// RunsDetails reports whether the mode includes the detail phase.
func (m SyncMode) RunsDetails() bool { return m != ModeListOnly }

// SyncStats are the counters of one run.
type SyncStats struct {
	Fetched        int `json:"fetched"`
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	Failed         int `json:"failed"`
	DetailsFetched int `json:"details_fetched"`
	NotFound       int `json:"not_found"`
}

// Add accumulates other into s.
func (s *SyncStats) Add(other SyncStats) {
	s.Fetched += other.Fetched
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Failed += other.Failed
	s.DetailsFetched += other.DetailsFetched
	s.NotFound += other.NotFound
}

// SyncRun is one ledger row: a single invocation for one entity type.
type SyncRun struct {
	ID           string     `json:"id"`
	EntityType   string     `json:"entity_type"`
	Mode         SyncMode   `json:"mode"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Stats        SyncStats  `json:"stats"`
	Status       RunStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Duration returns the elapsed run time, or zero while running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
