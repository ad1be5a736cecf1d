// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package models defines the data structures shared across flexsync.

Remote side:
  - Document: one semi-structured remote record (map of JSON variants)
  - Page: one page of a paginated listing with its totals

Local side:
  - EntityRecord: typed projection of a Document, ready for the store
  - LocalEntity: a stored row, including its detail-fetch checkpoint
  - PendingRef: keyset cursor over the detail backlog
  - CollectionSummary: per-collection status line

Ledger:
  - SyncRun, SyncStats, RunStatus, SyncMode

HTTP:
  - APIResponse, Metadata, APIError
*/
package models
