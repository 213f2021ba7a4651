package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	// Named export time zones must resolve on hosts without zoneinfo.
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains Bangumi endpoint and request pacing settings.
type API struct {
	BaseURL                string `toml:"base_url" env:"API_BASE_URL"`
	SiteURL                string `toml:"site_url" env:"SITE_URL"`
	UserAgent              string `toml:"user_agent" env:"USER_AGENT"`
	RequestIntervalSeconds int    `toml:"request_interval_seconds" env:"REQUEST_INTERVAL_SECONDS"`
	TimeoutSeconds         int    `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	MaxRetries             int    `toml:"max_retries" env:"MAX_RETRIES"`
	InitialBackoffSeconds  int    `toml:"initial_backoff_seconds" env:"INITIAL_BACKOFF_SECONDS"`
	MaxBackoffSeconds      int    `toml:"max_backoff_seconds" env:"MAX_BACKOFF_SECONDS"`
	PageSize               int    `toml:"page_size" env:"PAGE_SIZE"`
	EpisodePageSize        int    `toml:"episode_page_size" env:"EPISODE_PAGE_SIZE"`
}

// Paths contains file and directory locations.
type Paths struct {
	CacheDir    string `toml:"cache_dir" env:"CACHE_DIR"`
	OutputDir   string `toml:"output_dir" env:"OUTPUT_DIR"`
	TokenFile   string `toml:"token_file" env:"TOKEN_FILE"`
	ArchivePath string `toml:"archive_path" env:"ARCHIVE_PATH"`
}

// Export contains output defaults; CLI flags override them.
type Export struct {
	Format   string `toml:"format" env:"FORMAT"`
	Detail   bool   `toml:"detail" env:"DETAIL"`
	Timezone string `toml:"timezone" env:"TIMEZONE"`
}

// Keyring controls the OS keyring token fallback.
type Keyring struct {
	Enabled bool   `toml:"enabled" env:"KEYRING_ENABLED"`
	Service string `toml:"service" env:"KEYRING_SERVICE"`
	Account string `toml:"account" env:"KEYRING_ACCOUNT"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
	File   string `toml:"file" env:"LOG_FILE"`
}

// Config encapsulates all configuration values for bgmexport.
//
// Configuration sections:
//   - API: endpoints, pacing, retries, and page sizes
//   - Paths: cache, output, token file, and snapshot archive
//   - Export: default format, detail mode, and display time zone
//   - Keyring: OS keyring token storage
//   - Logging: log format, level, and optional file
type Config struct {
	API     API     `toml:"api" envPrefix:"BGMEXPORT_"`
	Paths   Paths   `toml:"paths" envPrefix:"BGMEXPORT_"`
	Export  Export  `toml:"export" envPrefix:"BGMEXPORT_"`
	Keyring Keyring `toml:"keyring" envPrefix:"BGMEXPORT_"`
	Logging Logging `toml:"logging" envPrefix:"BGMEXPORT_"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file, then applies
// .env and environment overrides. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(defaultEnvFile); err != nil {
		return nil, "", false, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads KEY=VALUE pairs without overriding variables already set
// in the process environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigPath)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// RequestInterval returns the minimum spacing between outbound requests. It
// never drops below the floor Bangumi asks clients to respect.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(max(c.API.RequestIntervalSeconds, minRequestInterval)) * time.Second
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Location returns the display time zone for exported timestamps.
func (c *Config) Location() *time.Location {
	if c.Export.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// EnsureDirectories creates the cache and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Paths.ArchivePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.ArchivePath), 0o755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the provided path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
