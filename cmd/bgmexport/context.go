package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bgmexport/internal/config"
	"bgmexport/internal/logging"
	"bgmexport/internal/token"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger once. Without a log file it writes to
// stderr of the running command; with one, warnings are still mirrored there.
func (c *commandContext) ensureLogger(stderr io.Writer) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := cfg.Logging.Level
		if c.debugFlag != nil && *c.debugFlag {
			level = "debug"
		}
		opts := logging.Options{Level: level, Format: cfg.Logging.Format}
		if cfg.Logging.File != "" {
			opts.OutputPaths = []string{cfg.Logging.File}
			opts.Mirror = stderr
		} else {
			opts.Writer = stderr
		}
		c.logger, c.loggerErr = logging.New(opts)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) tokenOptions() (token.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return token.Options{}, err
	}
	return token.Options{
		File:           cfg.Paths.TokenFile,
		KeyringEnabled: cfg.Keyring.Enabled,
		KeyringService: cfg.Keyring.Service,
		KeyringAccount: cfg.Keyring.Account,
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
