// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/metrics"
	"github.com/tomtom215/flexsync/internal/models"
)

const breakerName = "flex-api"

// CircuitBreakerClient wraps a RemoteAPI with a circuit breaker so that an
// unavailable remote halts runs instead of burning the retry budget of every
// remaining record.
//
// The breaker uses real time for its interval and timeout. Tests exercise it
// through the wrapped API and the request counts, not through the clock.
type CircuitBreakerClient struct {
	api  RemoteAPI
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewCircuitBreakerClient wraps api. The circuit opens once at least
// MinRequests calls were made in the window and the failure ratio reaches
// FailureRatio. Not-found, credential and throttling responses are answers,
// not outages, and never count as failures.
func NewCircuitBreakerClient(api RemoteAPI, cfg *config.BreakerConfig) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},

		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, ErrRateLimited) ||
				errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: breakerName}
}

// execute runs fn under the breaker. Rejections are reported as ErrCircuitOpen.
func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		counts := cbc.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

// castResult type-checks a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// State returns the breaker state as closed, half-open or open.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (any, error) {
		return nil, cbc.api.Ping(ctx)
	})
	return err
}

// GetPage fetches a listing page with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetPage(ctx context.Context, path string, params url.Values, page, size int) (*models.Page, error) {
	return castResult[*models.Page](cbc.execute(func() (any, error) {
		return cbc.api.GetPage(ctx, path, params, page, size)
	}))
}

// GetList fetches an unpaginated listing with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetList(ctx context.Context, path string, params url.Values) ([]models.Document, error) {
	return castResult[[]models.Document](cbc.execute(func() (any, error) {
		return cbc.api.GetList(ctx, path, params)
	}))
}

// GetRecord fetches one record with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetRecord(ctx context.Context, path, id string) (models.Document, error) {
	return castResult[models.Document](cbc.execute(func() (any, error) {
		return cbc.api.GetRecord(ctx, path, id)
	}))
}
