// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package models

import "time"

// ColumnValue is one mapped column and its normalized Go value.
// Values are nil, string, int64, float64, bool, decimal.Decimal or time.Time;
// the store converts them to its own representation when binding.
type ColumnValue struct {
	Column string
	Value  any
}

// EntityRecord is the typed projection of one Document, ready to be written.
type EntityRecord struct {
	RemoteID string
	Values   []ColumnValue
	// Payload is the canonical serialization of the source Document.
	Payload string
}

// Value returns the mapped value for column, if projected.
func (r *EntityRecord) Value(column string) (any, bool) {
	for _, cv := range r.Values {
		if cv.Column == column {
			return cv.Value, true
		}
	}
	return nil, false
}

// LocalEntity is the stored counterpart of a remote record.
type LocalEntity struct {
	ID              string
	RemoteID        string
	Payload         string
	DetailPayload   *string
	DetailFetched   bool
	DetailFetchedAt *time.Time
	RemoteDeleted   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Values holds the mapped columns, keyed by column name.
	Values map[string]any
}

// PendingRef identifies one row still waiting for its detail fetch. It also
// serves as the keyset cursor for walking the backlog in creation order.
type PendingRef struct {
	RemoteID  string
	CreatedAt time.Time
}

// CollectionSummary is the per-collection line of the status report.
type CollectionSummary struct {
	Collection    string    `json:"collection"`
	Table         string    `json:"table"`
	TwoPhase      bool      `json:"two_phase"`
	Total         int64     `json:"total"`
	DetailPending int64     `json:"detail_pending"`
	RemoteDeleted int64     `json:"remote_deleted"`
	LastSuccess   *SyncRun  `json:"last_success,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}
