// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package api serves the flexsync status API in serve mode.

Routes (chi):

	GET  /api/v1/health/live            process is up
	GET  /api/v1/health/ready           local store answers
	GET  /api/v1/runs                   recent ledger rows (?limit=, ?collection=)
	GET  /api/v1/collections            per-collection counts and last success
	GET  /api/v1/sync/status            whether a sync is executing
	POST /api/v1/sync/{collection}      start a sync (?mode=full|list-only|details-only)
	GET  /metrics                       Prometheus exposition

Every JSON body uses the models.APIResponse envelope. A trigger answers 202
when the sync was started and 409 when one is already executing.
*/
package api
