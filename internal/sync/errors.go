// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUnauthorized means the API rejected the token (401/403). Terminal.
	ErrUnauthorized = errors.New("remote rejected credentials")

	// ErrNotFound means the resource does not exist (404). Not a failure.
	ErrNotFound = errors.New("remote resource not found")

	// ErrRateLimited means the API throttled the request (429).
	ErrRateLimited = errors.New("remote rate limit exceeded")

	// ErrCircuitOpen means the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrSyncInProgress is returned when a trigger races a running sync.
	ErrSyncInProgress = errors.New("a sync is already in progress")

	// ErrUnknownCollection is returned for names missing from the registry.
	ErrUnknownCollection = errors.New("unknown collection")
)

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap maps the status onto the sentinel taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// RetryExhaustedError is returned when every attempt of a call failed.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	// Throttled is true when the final failure was a throttling response.
	Throttled bool
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// PaginationError reports missing or inconsistent page metadata.
type PaginationError struct {
	Collection string
	Page       int
	Reason     string
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination of %s failed at page %d: %s", e.Collection, e.Page, e.Reason)
}

// MappingError reports a record that could not be projected onto its table.
// It is counted against the run and never aborts the batch.
type MappingError struct {
	Collection string
	RemoteID   string
	Err        error
}

func (e *MappingError) Error() string {
	if e.RemoteID == "" {
		return fmt.Sprintf("map %s record: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("map %s record %s: %v", e.Collection, e.RemoteID, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// FatalError wraps a failure that escapes the per-record boundary, such as
// an unavailable local store. It fails the run.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(op string, err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Op: op, Err: err}
}

// IsThrottleHalt reports whether err should pause a run rather than fail
// it: retries exhausted on throttling, or the circuit breaker is open.
func IsThrottleHalt(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var re *RetryExhaustedError
	return errors.As(err, &re) && re.Throttled
}

// retryAfter extracts the server-requested wait from err, if any.
func retryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
