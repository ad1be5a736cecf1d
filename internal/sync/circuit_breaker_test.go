// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/models"
)

// stubAPI answers every call with err.
type stubAPI struct {
	err   error
	calls int
}

func (s *stubAPI) GetPage(context.Context, string, url.Values, int, int) (*models.Page, error) {
	s.calls++
	return nil, s.err
}

func (s *stubAPI) GetList(context.Context, string, url.Values) ([]models.Document, error) {
	s.calls++
	return nil, s.err
}

func (s *stubAPI) GetRecord(_ context.Context, _, id string) (models.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return models.Document{"id": id}, nil
}

func (s *stubAPI) Ping(context.Context) error {
	s.calls++
	return s.err
}

func breakerConfig() *config.BreakerConfig {
	return &config.BreakerConfig{
		Enabled:      true,
		MinRequests:  5,
		FailureRatio: 0.6,
		OpenTimeout:  time.Minute,
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	api := &stubAPI{err: &StatusError{StatusCode: http.StatusBadGateway}}
	cbc := NewCircuitBreakerClient(api, breakerConfig())

	if cbc.cb.State() != gobreaker.StateClosed {
		t.Fatalf("initial state = %v, want closed", cbc.cb.State())
	}
	for i := 0; i < 5; i++ {
		_, _ = cbc.GetRecord(context.Background(), "/contact", "c1")
	}
	if cbc.State() != "open" {
		t.Fatalf("state after 5 failures = %s, want open", cbc.State())
	}

	_, err := cbc.GetRecord(context.Background(), "/contact", "c1")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if api.calls != 5 {
		t.Errorf("wrapped API called %d times, want 5", api.calls)
	}
	if Classify(err) != ClassAbort || !IsThrottleHalt(err) {
		t.Error("an open circuit must abort the call and halt the run")
	}
}

func TestCircuitBreaker_AnswersDoNotTrip(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusTooManyRequests} {
		api := &stubAPI{err: &StatusError{StatusCode: status}}
		cbc := NewCircuitBreakerClient(api, breakerConfig())
		for i := 0; i < 20; i++ {
			_, _ = cbc.GetList(context.Background(), "/x", nil)
		}
		if cbc.State() != "closed" {
			t.Errorf("HTTP %d tripped the breaker", status)
		}
	}
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	t.Parallel()

	cbc := NewCircuitBreakerClient(&stubAPI{}, breakerConfig())
	doc, err := cbc.GetRecord(context.Background(), "/contact", "c9")
	if err != nil {
		t.Fatalf("GetRecord() error: %v", err)
	}
	if id, _ := doc.ID("id"); id != "c9" {
		t.Errorf("id = %q, want c9", id)
	}
	docs, err := cbc.GetList(context.Background(), "/x", nil)
	if err != nil || docs != nil {
		t.Errorf("GetList() = %v, %v; want nil slice", docs, err)
	}
}
