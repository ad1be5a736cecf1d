// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flexsync/internal/models"
)

const testToken = "s3cret-token"

// resourceTypeAPI serves the unpaged resource type listing.
type resourceTypeAPI struct {
	requests atomic.Int32
	status   int
}

func (f *resourceTypeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if r.Header.Get("X-Auth-Token") != testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Path != "/api/resource-type" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`[{"id":1,"name":"Crew","code":"CR"},{"id":2,"name":"Truck","code":"TR"}]`))
}

// writeConfig writes a config file that points at baseURL and a sqlite
// database in a temp directory. An empty baseURL leaves the remote unset.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	if baseURL != "" {
		fmt.Fprintf(&b, "remote:\n  base_url: %s\n  token: %s\n  request_delay: 0s\n", baseURL, testToken)
	}
	b.WriteString("retry:\n  max_retries: 0\n")
	b.WriteString("breaker:\n  enabled: false\n")
	fmt.Fprintf(&b, "database:\n  driver: sqlite\n  path: %s\n", filepath.Join(dir, "flexsync.db"))
	b.WriteString("sync:\n  schedule: \"\"\n")
	b.WriteString("logging:\n  level: error\n")

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSyncThenReport(t *testing.T) {
	fake := &resourceTypeAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL+"/api/")

	out, err := execute(t, "--config", cfgPath, "sync", "resource_types")
	if err != nil {
		t.Fatalf("sync error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "resource_types: success") || !strings.Contains(out, "inserted=2") {
		t.Errorf("unexpected sync output:\n%s", out)
	}

	out, err = execute(t, "--config", cfgPath, "runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(out, "resource_types") || !strings.Contains(out, "success") {
		t.Errorf("runs output missing the run:\n%s", out)
	}

	out, err = execute(t, "--config", cfgPath, "--format", "json", "status", "resource_types")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	var resp struct {
		Status string                      `json:"status"`
		Data   []*models.CollectionSummary `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(resp.Data) != 1 || resp.Data[0].Total != 2 {
		t.Fatalf("status data = %+v", resp.Data)
	}
	if resp.Data[0].LastSuccess == nil {
		t.Error("expected last successful run in status")
	}
}

func TestSyncJSONReport(t *testing.T) {
	srv := httptest.NewServer(&resourceTypeAPI{})
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL+"/api/")

	out, err := execute(t, "--config", cfgPath, "--format", "json", "sync", "resource_types", "--quick")
	if err != nil {
		t.Fatalf("sync error: %v\n%s", err, out)
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Status models.RunStatus `json:"status"`
			Mode   models.SyncMode  `json:"mode"`
			Stats  models.SyncStats `json:"stats"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if resp.Data.Status != models.RunStatusSuccess || resp.Data.Mode != models.ModeListOnly || resp.Data.Stats.Inserted != 2 {
		t.Errorf("report = %+v", resp.Data)
	}
}

func TestSyncUnauthorizedExitsOne(t *testing.T) {
	fake := &resourceTypeAPI{status: http.StatusUnauthorized}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL+"/api/")

	out, err := execute(t, "--config", cfgPath, "sync", "resource_types")
	if got := GetExitCode(err); got != ExitFailure {
		t.Fatalf("exit code = %d, want %d (err %v)", got, ExitFailure, err)
	}
	if !strings.Contains(out, "resource_types: failed") {
		t.Errorf("summary line should be printed for a failed run:\n%s", out)
	}
	if n := fake.requests.Load(); n != 1 {
		t.Errorf("credential errors must not be retried, got %d requests", n)
	}

	out, err = execute(t, "--config", cfgPath, "runs", "--collection", "resource_types")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(out, "failed") {
		t.Errorf("ledger should record the failed run:\n%s", out)
	}
}

func TestCommandErrorsExitOne(t *testing.T) {
	srv := httptest.NewServer(&resourceTypeAPI{})
	t.Cleanup(srv.Close)
	withRemote := writeConfig(t, srv.URL+"/api/")
	withoutRemote := writeConfig(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"bad mode", []string{"--config", withRemote, "sync", "contacts", "--mode", "sideways"}},
		{"unknown collection", []string{"--config", withRemote, "sync", "gadgets"}},
		{"unknown collection in batch", []string{"--config", withRemote, "sync-all", "contacts", "gadgets"}},
		{"remote not configured", []string{"--config", withoutRemote, "sync", "contacts"}},
		{"missing config file", []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "runs"}},
		{"bad limit", []string{"--config", withoutRemote, "runs", "--limit", "0"}},
		{"missing argument", []string{"--config", withRemote, "sync"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := GetExitCode(err); got != 1 {
				t.Errorf("exit code = %d, want 1 (err %v)", got, err)
			}
		})
	}
}

func TestReadOnlyCommandsSkipRemote(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := execute(t, "--config", cfgPath, "runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(out, "No sync runs recorded.") {
		t.Errorf("runs output = %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if !strings.Contains(out, "contacts") || !strings.Contains(out, "never") {
		t.Errorf("status output:\n%s", out)
	}
}
