// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"upstream", "proxy-42", true},
		{"oversized", strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var seenReq, seenCorr string
			h := RequestID(func(_ http.ResponseWriter, r *http.Request) {
				seenReq = logging.RequestIDFromContext(r.Context())
				seenCorr = logging.CorrelationIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seenReq {
				t.Errorf("header %q, context %q", got, seenReq)
			}
			if (got == tt.incoming) != tt.keep {
				t.Errorf("request id = %q, keep upstream = %v", got, tt.keep)
			}
			if seenCorr == "" {
				t.Error("correlation id not set")
			}
		})
	}
}

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/api/v1/sync/{collection}", PrometheusMetrics(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/sync/{collection}", "409")
	before := testutil.ToFloat64(counter)

	for _, coll := range []string{"contacts", "serial_units"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/sync/"+coll, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter grew by %v, want 2", got)
	}
}
