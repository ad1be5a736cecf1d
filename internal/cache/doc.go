// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package cache provides a small thread-safe TTL cache for API responses.

The status API caches collection summaries, which cost a handful of COUNT
queries per collection, for a few seconds and clears them whenever a sync
is triggered.

Usage:

	summaries := cache.New[[]*models.CollectionSummary](5 * time.Second)
	if v, ok := summaries.Get("collections"); ok {
	    return v
	}
	summaries.Set("collections", fresh)
*/
package cache
