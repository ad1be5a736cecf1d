// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package models

import "time"

// APIResponse is the envelope of every status API response.
//
//	{
//	  "status": "success",
//	  "data": [{"collection": "serial_units", "detail_pending": 412}],
//	  "metadata": {"timestamp": "2026-10-18T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the error payload of a failed request.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, SYNC_IN_PROGRESS, DATABASE_ERROR,
// SERVICE_UNAVAILABLE.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TriggerResponse acknowledges a manually triggered sync.
type TriggerResponse struct {
	Collection string   `json:"collection"`
	Mode       SyncMode `json:"mode"`
	Accepted   bool     `json:"accepted"`
}
