// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package services adapts flexsync components to suture.Service.
//
// Each adapter translates a component's own lifecycle (Start/Stop, or
// ListenAndServe/Shutdown) into a context-driven Serve method and
// implements fmt.Stringer so supervisor logs name the service.
package services
