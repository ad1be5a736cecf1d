// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/flexsync/internal/config"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/metrics"
	"github.com/tomtom215/flexsync/internal/models"
)

// maxErrorBodySize limits how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

// pingPath is a cheap authenticated listing used for connectivity checks.
const pingPath = "/payment-term"

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "\n... (truncated)"
	}
	return strings.TrimSpace(string(body))
}

// RemoteAPI is the subset of the Flex API the sync engine needs.
type RemoteAPI interface {
	// GetPage fetches one page of a paginated listing.
	GetPage(ctx context.Context, path string, params url.Values, page, size int) (*models.Page, error)
	// GetList fetches an unpaginated listing (bare array or {content:[...]}).
	GetList(ctx context.Context, path string, params url.Values) ([]models.Document, error)
	// GetRecord fetches GET {path}/{id}.
	GetRecord(ctx context.Context, path, id string) (models.Document, error)
	Ping(ctx context.Context) error
}

// FlexClient talks to the Flex REST API. Requests are spaced by a
// token-bucket limiter so that the whole process stays under the remote's
// request-rate ceiling. A single attempt is made per call; retries belong to
// the Executor.
type FlexClient struct {
	baseURL    string
	token      string
	authHeader string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewFlexClient creates a client from configuration.
func NewFlexClient(cfg *config.RemoteConfig) *FlexClient {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &FlexClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		authHeader: cfg.AuthHeader,
		userAgent:  cfg.UserAgent,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
	}
}

// get performs one GET and returns the body of a 2xx response.
func (c *FlexClient) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(c.authHeader, c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordRemoteRequest(op, 0, time.Since(start))
		return nil, fmt.Errorf("GET %s: %w", logging.SanitizeURL(reqURL), err)
	}
	defer resp.Body.Close()
	metrics.RecordRemoteRequest(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			URL:        logging.SanitizeURL(reqURL),
			Body:       readBodyForError(resp.Body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	return body, nil
}

// GetPage fetches one page of a paginated listing.
func (c *FlexClient) GetPage(ctx context.Context, path string, params url.Values, page, size int) (*models.Page, error) {
	q := cloneValues(params)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	body, err := c.get(ctx, "page", path, q)
	if err != nil {
		return nil, err
	}
	p, err := models.DecodePage(body)
	if err != nil {
		return nil, fmt.Errorf("page %d of %s: %w", page, path, err)
	}
	p.Number = page
	return p, nil
}

// GetList fetches an unpaginated listing.
func (c *FlexClient) GetList(ctx context.Context, path string, params url.Values) ([]models.Document, error) {
	body, err := c.get(ctx, "list", path, params)
	if err != nil {
		return nil, err
	}
	docs, err := models.DecodeDocuments(body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return docs, nil
}

// GetRecord fetches a single record.
func (c *FlexClient) GetRecord(ctx context.Context, path, id string) (models.Document, error) {
	body, err := c.get(ctx, "record", strings.TrimRight(path, "/")+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	doc, err := models.DecodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("record %s/%s: %w", path, id, err)
	}
	return doc, nil
}

// Ping verifies connectivity and credentials.
func (c *FlexClient) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", pingPath, nil)
	return err
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// ParamsOf converts a collection's fixed parameters to url.Values.
func ParamsOf(m map[string]string) url.Values {
	v := make(url.Values, len(m))
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}

// parseRetryAfter accepts delta-seconds or an HTTP date (RFC 9110).
func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
