// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type remoteSection struct {
	BaseURL  string `koanf:"base_url" validate:"required,http_url"`
	PageSize int    `koanf:"page_size" validate:"min=1,max=1000"`
}

type sampleConfig struct {
	Remote   remoteSection `koanf:"remote"`
	Schedule string        `koanf:"schedule" validate:"omitempty,cronspec"`
	Driver   string        `koanf:"driver" validate:"oneof=duckdb sqlite"`
}

func validSample() sampleConfig {
	return sampleConfig{
		Remote:   remoteSection{BaseURL: "https://acme.flexrentalsolutions.com/f5/api", PageSize: 100},
		Schedule: "0 0 */6 * * *",
		Driver:   "duckdb",
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	cfg := validSample()
	if err := ValidateStruct(&cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateStruct_FieldNamesFollowKoanfTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *sampleConfig)
		wantMsg string
	}{
		{"missing url", func(c *sampleConfig) { c.Remote.BaseURL = "" }, "remote.base_url is required"},
		{"page size", func(c *sampleConfig) { c.Remote.PageSize = 0 }, "remote.page_size must be at least 1"},
		{"bad cron", func(c *sampleConfig) { c.Schedule = "every six hours" }, "schedule must be a cron expression"},
		{"five field cron", func(c *sampleConfig) { c.Schedule = "0 */6 * * *" }, "schedule must be a cron expression"},
		{"driver", func(c *sampleConfig) { c.Driver = "postgres" }, "driver must be one of: duckdb sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validSample()
			tt.mutate(&cfg)

			err := ValidateStruct(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCronDescriptorsAccepted(t *testing.T) {
	t.Parallel()

	cfg := validSample()
	cfg.Schedule = "@every 30m"
	if err := ValidateStruct(&cfg); err != nil {
		t.Errorf("descriptor schedule rejected: %v", err)
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	cfg := validSample()
	cfg.Driver = "mysql"
	cfg.Remote.PageSize = 5000

	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("expected 2 field errors, got %v", apiErr.Details)
	}
}
