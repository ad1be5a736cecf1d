// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package config loads flexsync configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (env wins).
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Remote   RemoteConfig   `koanf:"remote"`
	Retry    RetryConfig    `koanf:"retry"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// RemoteConfig describes the upstream rental inventory API.
type RemoteConfig struct {
	// BaseURL is the API root, e.g. https://acme.flexrentalsolutions.com/f5/api
	BaseURL string `koanf:"base_url" validate:"omitempty,http_url"`

	// Token is sent in AuthHeader on every request.
	Token      string        `koanf:"token"`
	AuthHeader string        `koanf:"auth_header" validate:"required"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	PageSize   int           `koanf:"page_size" validate:"min=1,max=1000"`

	// RequestDelay is the minimum spacing between two requests.
	RequestDelay time.Duration `koanf:"request_delay" validate:"gte=0"`
	UserAgent    string        `koanf:"user_agent"`
}

// RetryConfig controls the retry executor.
type RetryConfig struct {
	MaxRetries    int           `koanf:"max_retries" validate:"min=0,max=20"`
	BaseDelay     time.Duration `koanf:"base_delay" validate:"gt=0"`
	ThrottleDelay time.Duration `koanf:"throttle_delay" validate:"gt=0"`
	MaxDelay      time.Duration `koanf:"max_delay" validate:"gt=0"`
}

// BreakerConfig controls the circuit breaker around remote calls.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MinRequests  uint32        `koanf:"min_requests" validate:"min=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
	OpenTimeout  time.Duration `koanf:"open_timeout" validate:"gt=0"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
}

// DatabaseConfig selects and tunes the local store.
type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=duckdb sqlite"`
	Path   string `koanf:"path" validate:"required"`

	// MaxMemory and Threads apply to duckdb only.
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"`

	// BusyTimeout applies to sqlite only.
	BusyTimeout time.Duration `koanf:"busy_timeout" validate:"gte=0"`
}

// SyncConfig controls orchestration.
type SyncConfig struct {
	// MaxErrors aborts a run as failed once exceeded. Zero means unlimited.
	MaxErrors       int      `koanf:"max_errors" validate:"gte=0"`
	DetailBatchSize int      `koanf:"detail_batch_size" validate:"min=1,max=10000"`
	Schedule        string   `koanf:"schedule" validate:"omitempty,cronspec"`
	Collections     []string `koanf:"collections"`
	ProgressEvery   int      `koanf:"progress_every" validate:"gte=0"`
}

// ServerConfig controls the status API in serve mode.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`

	// SummaryCacheTTL caches GET /collections. Zero disables the cache.
	SummaryCacheTTL time.Duration `koanf:"summary_cache_ttl" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}
