// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/flexsync/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *FlexClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewFlexClient(&config.RemoteConfig{
		BaseURL:    srv.URL + "/api/",
		Token:      testToken,
		AuthHeader: "X-Auth-Token",
		Timeout:    5 * time.Second,
		UserAgent:  "flexsync-test",
	})
}

func TestFlexClient_GetPageSendsAuthAndPaging(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/contact" {
			t.Errorf("path = %s, want /api/contact", r.URL.Path)
		}
		if got := r.Header.Get("X-Auth-Token"); got != testToken {
			t.Errorf("auth header = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "flexsync-test" {
			t.Errorf("user agent = %q", got)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("size") != "50" || q.Get("searchText") != "" || !q.Has("searchText") {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"totalElements":120,"totalPages":3,"content":[{"id":"c1"},{"id":12345678901234567}]}`))
	})

	page, err := client.GetPage(context.Background(), "/contact", url.Values{"searchText": {""}}, 2, 50)
	if err != nil {
		t.Fatalf("GetPage() error: %v", err)
	}
	if page.Number != 2 || *page.TotalPages != 3 || *page.TotalElements != 120 || len(page.Content) != 2 {
		t.Errorf("page = %+v", page)
	}
	if id, _ := page.Content[1].ID("id"); id != "12345678901234567" {
		t.Errorf("numeric id = %q, want exact digits", id)
	}
}

func TestFlexClient_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		is     error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "7")
				http.Error(w, "nope", tt.status)
			})

			_, err := client.GetRecord(context.Background(), "/contact", "c1")
			if !errors.Is(err, tt.is) {
				t.Fatalf("GetRecord() error = %v, want %v", err, tt.is)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status || se.RetryAfter != 7*time.Second {
				t.Errorf("status error = %+v", se)
			}
		})
	}
}

func TestFlexClient_ServerErrorIsTransientWithBoundedBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", maxErrorBodySize*2)))
	})

	_, err := client.GetList(context.Background(), "/resource-type", nil)
	if Classify(err) != ClassTransient {
		t.Fatalf("Classify(%v) = %s, want transient", err, Classify(err))
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatal("expected StatusError")
	}
	if len(se.Body) > maxErrorBodySize+32 || !strings.HasSuffix(se.Body, "(truncated)") {
		t.Errorf("body length %d, want truncated to %d", len(se.Body), maxErrorBodySize)
	}
}

func TestFlexClient_GetListShapes(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"bare array": `[{"id":"a"},{"id":"b"}]`,
		"content":    `{"content":[{"id":"a"},{"id":"b"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			docs, err := client.GetList(context.Background(), "/payment-term", nil)
			if err != nil {
				t.Fatalf("GetList() error: %v", err)
			}
			if len(docs) != 2 {
				t.Errorf("got %d docs, want 2", len(docs))
			}
		})
	}
}

func TestFlexClient_GetRecordEscapesID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/contact/a%2Fb" {
			t.Errorf("escaped path = %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"id":"a/b"}`))
	})
	if _, err := client.GetRecord(context.Background(), "/contact/", "a/b"); err != nil {
		t.Fatalf("GetRecord() error: %v", err)
	}
}

func TestFlexClient_RequestDelaySpacesRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	client := NewFlexClient(&config.RemoteConfig{
		BaseURL:      srv.URL,
		AuthHeader:   "X-Auth-Token",
		Timeout:      5 * time.Second,
		RequestDelay: 40 * time.Millisecond,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := client.Ping(context.Background()); err != nil {
			t.Fatalf("Ping() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests took %v, want at least 2 delays", elapsed)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"-5", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
