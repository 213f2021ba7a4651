package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	for name, raw := range map[string]string{"api.base_url": c.API.BaseURL, "api.site_url": c.API.SiteURL} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.API.RequestIntervalSeconds < minRequestInterval {
		return fmt.Errorf("api.request_interval_seconds must be at least %d, got %d", minRequestInterval, c.API.RequestIntervalSeconds)
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be zero or positive")
	}
	if c.API.MaxBackoffSeconds < c.API.InitialBackoffSeconds {
		return errors.New("api.max_backoff_seconds must be at least api.initial_backoff_seconds")
	}
	if c.API.PageSize > maxCollectionPageSize {
		return fmt.Errorf("api.page_size must be at most %d", maxCollectionPageSize)
	}
	if c.API.EpisodePageSize > maxEpisodePageSize {
		return fmt.Errorf("api.episode_page_size must be at most %d", maxEpisodePageSize)
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Format {
	case "json", "csv", "all":
	default:
		return fmt.Errorf("export.format must be json, csv, or all, got %q", c.Export.Format)
	}
	if c.Export.Timezone != "" {
		if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
			return fmt.Errorf("export.timezone: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
