package config

const (
	defaultAPIBaseURL          = "https://api.bgm.tv"
	defaultSiteURL             = "https://bgm.tv"
	defaultUserAgent           = "bgmexport/dev (https://github.com/bgmexport/bgmexport)"
	defaultRequestInterval     = minRequestInterval
	minRequestInterval         = 5
	defaultTimeoutSeconds      = 30
	defaultMaxRetries          = 3
	defaultInitialBackoff      = 2
	defaultMaxBackoff          = 60
	defaultPageSize            = 30
	defaultEpisodePageSize     = 100
	defaultCacheDir            = ".bgm_cache"
	defaultOutputDir           = "."
	defaultTokenFile           = ".bgm_token"
	defaultExportFormat        = "all"
	defaultLogFormat           = "console"
	defaultLogLevel            = "warn"
	maxCollectionPageSize      = 50
	maxEpisodePageSize         = 1000
	defaultConfigPath          = "~/.config/bgmexport/config.toml"
	defaultProjectConfigPath   = "bgmexport.toml"
	defaultEnvFile             = ".env"
	defaultKeyringServiceName  = "bgmexport"
	defaultKeyringAccountLabel = "access_token"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:                defaultAPIBaseURL,
			SiteURL:                defaultSiteURL,
			UserAgent:              defaultUserAgent,
			RequestIntervalSeconds: defaultRequestInterval,
			TimeoutSeconds:         defaultTimeoutSeconds,
			MaxRetries:             defaultMaxRetries,
			InitialBackoffSeconds:  defaultInitialBackoff,
			MaxBackoffSeconds:      defaultMaxBackoff,
			PageSize:               defaultPageSize,
			EpisodePageSize:        defaultEpisodePageSize,
		},
		Paths: Paths{
			CacheDir:  defaultCacheDir,
			OutputDir: defaultOutputDir,
			TokenFile: defaultTokenFile,
		},
		Export: Export{
			Format: defaultExportFormat,
		},
		Keyring: Keyring{
			Enabled: true,
			Service: defaultKeyringServiceName,
			Account: defaultKeyringAccountLabel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
