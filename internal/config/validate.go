// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/validation"
)

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateRetry(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	return c.validateLogging()
}

// ValidateRemote checks the settings needed to contact the API.
func (c *Config) ValidateRemote() error {
	if c.Remote.BaseURL == "" {
		return errors.New("FLEX_BASE_URL is required")
	}
	if err := validateHTTPURL(c.Remote.BaseURL, "FLEX_BASE_URL"); err != nil {
		return err
	}
	if c.Remote.Token == "" {
		return errors.New("FLEX_API_KEY is required")
	}
	if containsPlaceholder(c.Remote.Token) {
		return errors.New("FLEX_API_KEY looks like a placeholder, set a real token")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.ThrottleDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.throttle_delay (%s) must not be shorter than retry.base_delay (%s)",
			c.Retry.ThrottleDelay, c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) must not be shorter than retry.base_delay (%s)",
			c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

func (c *Config) validateSync() error {
	registry := mapping.Default()
	for _, name := range c.Sync.Collections {
		if _, ok := registry.Get(name); !ok {
			return fmt.Errorf("sync.collections: unknown collection %q (known: %s)",
				name, strings.Join(registry.Names(), ", "))
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// validateHTTPURL requires an http(s) scheme and a host. A path is allowed
// since API roots carry one; query strings and fragments are not.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	if parsedURL.Fragment != "" {
		return fmt.Errorf("%s should not contain a fragment", fieldName)
	}

	return nil
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_TOKEN",
	"YOUR_API_KEY",
	"PLACEHOLDER",
}

func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
