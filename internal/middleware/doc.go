// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package middleware holds HTTP middleware for the status API: request
// tracing and Prometheus instrumentation. Both are plain
// func(http.HandlerFunc) http.HandlerFunc and are adapted to chi by the api
// package.
package middleware
