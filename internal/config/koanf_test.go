// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the config search at an empty directory so a developer's
// config.yaml cannot leak into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	orig := DefaultConfigPaths
	DefaultConfigPaths = nil
	t.Cleanup(func() { DefaultConfigPaths = orig })
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Remote.AuthHeader != "X-Auth-Token" {
		t.Errorf("Remote.AuthHeader = %q, want X-Auth-Token", cfg.Remote.AuthHeader)
	}
	if cfg.Remote.PageSize != 100 {
		t.Errorf("Remote.PageSize = %d, want 100", cfg.Remote.PageSize)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.ThrottleDelay != 10*time.Second {
		t.Errorf("Retry.ThrottleDelay = %v, want 10s", cfg.Retry.ThrottleDelay)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Sync.MaxErrors != 50 {
		t.Errorf("Sync.MaxErrors = %d, want 50", cfg.Sync.MaxErrors)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want 8787", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FLEX_BASE_URL", "https://acme.flexrentalsolutions.com/f5/api")
	t.Setenv("FLEX_API_KEY", "0123456789abcdef")
	t.Setenv("FLEX_PAGE_SIZE", "250")
	t.Setenv("RETRY_THROTTLE_DELAY", "15s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SYNC_COLLECTIONS", "contacts, inventory_models ,serial_units")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(LoadOptions{RequireRemote: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Remote.PageSize != 250 {
		t.Errorf("PageSize = %d, want 250", cfg.Remote.PageSize)
	}
	if cfg.Retry.ThrottleDelay != 15*time.Second {
		t.Errorf("ThrottleDelay = %v, want 15s", cfg.Retry.ThrottleDelay)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	want := []string{"contacts", "inventory_models", "serial_units"}
	if strings.Join(cfg.Sync.Collections, ",") != strings.Join(want, ",") {
		t.Errorf("Collections = %v, want %v", cfg.Sync.Collections, want)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	content := `
remote:
  base_url: https://file.example.com/f5/api
  token: file-token-value
  page_size: 50
sync:
  max_errors: 5
  collections: [contacts, elements]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SYNC_MAX_ERRORS", "9")

	cfg, err := Load(LoadOptions{RequireRemote: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Remote.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50 from file", cfg.Remote.PageSize)
	}
	if cfg.Sync.MaxErrors != 9 {
		t.Errorf("MaxErrors = %d, want 9 from env", cfg.Sync.MaxErrors)
	}
	if len(cfg.Sync.Collections) != 2 {
		t.Errorf("Collections = %v, want 2 entries from YAML list", cfg.Sync.Collections)
	}
}

func TestLoad_RequireRemote(t *testing.T) {
	isolate(t)

	if _, err := Load(LoadOptions{}); err != nil {
		t.Fatalf("read-only load should succeed without remote settings: %v", err)
	}

	_, err := Load(LoadOptions{RequireRemote: true})
	if err == nil || !strings.Contains(err.Error(), "FLEX_BASE_URL is required") {
		t.Fatalf("expected missing base URL error, got %v", err)
	}

	t.Setenv("FLEX_BASE_URL", "https://acme.example.com/f5/api")
	t.Setenv("FLEX_API_KEY", "CHANGEME")
	_, err = Load(LoadOptions{RequireRemote: true})
	if err == nil || !strings.Contains(err.Error(), "placeholder") {
		t.Fatalf("expected placeholder error, got %v", err)
	}
}

func TestValidate_CrossField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"throttle shorter than base", func(c *Config) { c.Retry.ThrottleDelay = 500 * time.Millisecond }, "throttle_delay"},
		{"max shorter than base", func(c *Config) { c.Retry.MaxDelay = 100 * time.Millisecond }, "max_delay"},
		{"unknown collection", func(c *Config) { c.Sync.Collections = []string{"invoices"} }, `unknown collection "invoices"`},
		{"bad schedule", func(c *Config) { c.Sync.Schedule = "hourly" }, "sync.schedule"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://acme.flexrentalsolutions.com/f5/api", false},
		{"http://localhost:8080", false},
		{"ftp://example.com", true},
		{"https://", true},
		{"https://example.com/api?key=1", true},
		{"https://example.com/api#frag", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			err := validateHTTPURL(tt.url, "FLEX_BASE_URL")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
