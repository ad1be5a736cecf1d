// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/metrics"
)

// ErrorClass is the retry decision for one failed attempt.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	// ClassAuth is a credential failure. Never retried.
	ClassAuth
	// ClassNotFound is an absent resource. Never retried; callers treat it as empty.
	ClassNotFound
	// ClassThrottled is retried with the throttle back-off.
	ClassThrottled
	// ClassTransient is retried with the exponential back-off.
	ClassTransient
	// ClassAbort is returned as-is: cancellation or an open circuit.
	// Client timeouts are transient; an expired caller context is caught
	// before the next attempt.
	ClassAbort
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAuth:
		return "auth"
	case ClassNotFound:
		return "not_found"
	case ClassThrottled:
		return "throttled"
	case ClassTransient:
		return "transient"
	case ClassAbort:
		return "abort"
	}
	return "unknown"
}

// Classify maps an error to its retry class.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrUnauthorized):
		return ClassAuth
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrRateLimited):
		return ClassThrottled
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, context.Canceled):
		return ClassAbort
	}
	return ClassTransient
}

// Policy is the retry ceiling and back-off curve.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries    int
	BaseDelay     time.Duration
	ThrottleDelay time.Duration
	MaxDelay      time.Duration
}

// PolicyFromConfig builds a Policy from configuration.
func PolicyFromConfig(cfg *config.RetryConfig) Policy {
	return Policy{
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseDelay,
		ThrottleDelay: cfg.ThrottleDelay,
		MaxDelay:      cfg.MaxDelay,
	}
}

// BackoffWait is the wait after a transient failure of the given attempt
// (0-based): BaseDelay * 2^attempt, capped at MaxDelay.
func (p Policy) BackoffWait(attempt int) time.Duration {
	wait := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && wait >= p.MaxDelay {
			break
		}
		wait *= 2
	}
	return p.clamp(wait)
}

// ThrottleWait is the wait after a throttled attempt. It grows linearly
// from ThrottleDelay, is raised to the server's Retry-After, is capped at
// MaxDelay and is never shorter than prev.
func (p Policy) ThrottleWait(attempt int, prev, retryAfter time.Duration) time.Duration {
	wait := p.ThrottleDelay * time.Duration(attempt+1)
	if retryAfter > wait {
		wait = retryAfter
	}
	wait = p.clamp(wait)
	if wait < prev {
		wait = prev
	}
	return wait
}

func (p Policy) clamp(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor runs remote calls under a Policy. It holds no per-call state and
// is safe for concurrent use.
type Executor struct {
	policy Policy
	sleep  SleepFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the wait between attempts. Tests use it to record
// waits without sleeping.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) { e.sleep = fn }
}

// NewExecutor creates an Executor.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{policy: policy, sleep: sleepContext}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// Do runs fn until it succeeds, fails terminally, or MaxRetries retries
// have been spent. Auth, not-found and abort errors are returned unchanged;
// exhaustion returns *RetryExhaustedError wrapping the last failure.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var prevThrottle time.Duration

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		class := Classify(err)
		switch class {
		case ClassNone:
			return nil
		case ClassAuth, ClassNotFound, ClassAbort:
			return err
		}

		if attempt >= e.policy.MaxRetries {
			return &RetryExhaustedError{
				Op:        op,
				Attempts:  attempt + 1,
				Throttled: class == ClassThrottled,
				Err:       err,
			}
		}

		var wait time.Duration
		if class == ClassThrottled {
			wait = e.policy.ThrottleWait(attempt, prevThrottle, retryAfter(err))
			prevThrottle = wait
		} else {
			wait = e.policy.BackoffWait(attempt)
		}
		metrics.RecordRetry(class == ClassThrottled)

		logging.Ctx(ctx).Warn().
			Err(err).
			Str("op", op).
			Str("class", class.String()).
			Int("attempt", attempt+1).
			Int("max_attempts", e.policy.MaxRetries+1).
			Dur("delay", wait).
			Msg("Retry attempt")

		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Retry is Do for calls that return a value.
func Retry[T any](ctx context.Context, e *Executor, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
