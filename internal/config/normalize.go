package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TokenFile) == "" {
		c.Paths.TokenFile = defaultTokenFile
	}
	if c.Paths.TokenFile, err = expandPath(c.Paths.TokenFile); err != nil {
		return fmt.Errorf("paths.token_file: %w", err)
	}
	if c.Paths.ArchivePath, err = expandPath(strings.TrimSpace(c.Paths.ArchivePath)); err != nil {
		return fmt.Errorf("paths.archive_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	c.API.SiteURL = strings.TrimRight(strings.TrimSpace(c.API.SiteURL), "/")
	if c.API.SiteURL == "" {
		c.API.SiteURL = defaultSiteURL
	}
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.API.PageSize <= 0 {
		c.API.PageSize = defaultPageSize
	}
	if c.API.EpisodePageSize <= 0 {
		c.API.EpisodePageSize = defaultEpisodePageSize
	}
	if c.API.InitialBackoffSeconds <= 0 {
		c.API.InitialBackoffSeconds = defaultInitialBackoff
	}
	if c.API.MaxBackoffSeconds <= 0 {
		c.API.MaxBackoffSeconds = defaultMaxBackoff
	}
}

func (c *Config) normalizeExport() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	c.Export.Timezone = strings.TrimSpace(c.Export.Timezone)
	c.Keyring.Service = strings.TrimSpace(c.Keyring.Service)
	if c.Keyring.Service == "" {
		c.Keyring.Service = defaultKeyringServiceName
	}
	c.Keyring.Account = strings.TrimSpace(c.Keyring.Account)
	if c.Keyring.Account == "" {
		c.Keyring.Account = defaultKeyringAccountLabel
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}
