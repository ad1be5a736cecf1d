// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package sync replicates collections of the Flex Rental Solutions REST API
into the local store.

Components, leaves first:

  - Executor: runs one remote call with bounded retries. Credential
    failures and 404s return immediately, 429s back off linearly from the
    throttle delay (honouring Retry-After), everything else backs off
    exponentially from the base delay.
  - FlexClient and CircuitBreakerClient: the HTTP client, paced by a
    token-bucket limiter, and its gobreaker wrapper. Both implement RemoteAPI.
  - Fetcher: enumerates a collection page by page (or per parent, or from
    stored references) as a lazy iter.Seq2 of batches.
  - Reconciler: insert-or-update of one remote record against the store.
  - Orchestrator: the two-phase run. Phase 1 reconciles list data and leaves
    new rows pending; Phase 2 walks the pending rows in creation order,
    fetches each detail payload and marks it fetched. Sustained throttling
    or an open circuit halts the run as partial; the next run resumes from
    the pending rows.
  - Manager: cron schedule and single-flight manual triggers for serve mode.

Every run is recorded in the audit ledger.
*/
package sync
