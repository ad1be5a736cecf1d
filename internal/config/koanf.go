// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/flexsync/config.yaml",
	"/etc/flexsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadOptions adjusts validation for the command being run.
type LoadOptions struct {
	// RequireRemote demands remote.base_url and remote.token. Read-only
	// commands that never contact the API leave it false.
	RequireRemote bool

	// Path forces a config file, bypassing the search.
	Path string
}

func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			AuthHeader:   "X-Auth-Token",
			Timeout:      30 * time.Second,
			PageSize:     100,
			RequestDelay: 150 * time.Millisecond,
			UserAgent:    "flexsync/1.0",
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			BaseDelay:     time.Second,
			ThrottleDelay: 10 * time.Second,
			MaxDelay:      2 * time.Minute,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MinRequests:  10,
			FailureRatio: 0.6,
			OpenTimeout:  2 * time.Minute,
			Interval:     time.Minute,
		},
		Database: DatabaseConfig{
			Driver:      "duckdb",
			Path:        "./data/flexsync.duckdb",
			MaxMemory:   "1GB",
			Threads:     0,
			BusyTimeout: 5 * time.Second,
		},
		Sync: SyncConfig{
			MaxErrors:       50,
			DetailBatchSize: 100,
			Schedule:        "0 0 */6 * * *",
			ProgressEvery:   25,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8787,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			SummaryCacheTTL: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := opts.Path
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// FLEX_BASE_URL -> remote.base_url, SYNC_MAX_ERRORS -> sync.max_errors
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if opts.RequireRemote {
		if err := cfg.ValidateRemote(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"sync.collections",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"flex_base_url":      "remote.base_url",
	"flex_api_key":       "remote.token",
	"flex_auth_header":   "remote.auth_header",
	"flex_timeout":       "remote.timeout",
	"flex_page_size":     "remote.page_size",
	"flex_request_delay": "remote.request_delay",
	"flex_user_agent":    "remote.user_agent",

	"retry_max":            "retry.max_retries",
	"retry_base_delay":     "retry.base_delay",
	"retry_throttle_delay": "retry.throttle_delay",
	"retry_max_delay":      "retry.max_delay",

	"breaker_enabled":       "breaker.enabled",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",
	"breaker_open_timeout":  "breaker.open_timeout",

	"db_driver":       "database.driver",
	"db_path":         "database.path",
	"db_max_memory":   "database.max_memory",
	"db_threads":      "database.threads",
	"db_busy_timeout": "database.busy_timeout",

	"sync_max_errors":        "sync.max_errors",
	"sync_detail_batch_size": "sync.detail_batch_size",
	"sync_schedule":          "sync.schedule",
	"sync_collections":       "sync.collections",
	"sync_progress_every":    "sync.progress_every",

	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",
	"summary_cache_ttl": "server.summary_cache_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
