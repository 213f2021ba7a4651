// Package token resolves the Bangumi access token from the environment, a
// token file, or the OS keyring, in that order.
package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// EnvVar is the environment variable checked first.
const EnvVar = "BANGUMI_ACCESS_TOKEN"

// ErrNoToken reports that no source produced a token.
var ErrNoToken = errors.New("no Bangumi access token found")

// Source names where a token came from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceKeyring Source = "keyring"
)

// Options locates the token sources.
type Options struct {
	File           string
	KeyringEnabled bool
	KeyringService string
	KeyringAccount string
}

// Resolve returns the first non-blank token and the source it came from.
func Resolve(opts Options) (string, Source, error) {
	if value := strings.TrimSpace(os.Getenv(EnvVar)); value != "" {
		return value, SourceEnv, nil
	}
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		switch {
		case err == nil:
			if value := strings.TrimSpace(string(data)); value != "" {
				return value, SourceFile, nil
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", "", fmt.Errorf("read token file %s: %w", opts.File, err)
		}
	}
	if opts.KeyringEnabled {
		// A missing entry or an unavailable keyring (headless host, no D-Bus)
		// just means this source is empty.
		if value, err := keyring.Get(opts.KeyringService, opts.KeyringAccount); err == nil {
			if value = strings.TrimSpace(value); value != "" {
				return value, SourceKeyring, nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: set %s, write it to %s, or run 'bgmexport token set'", ErrNoToken, EnvVar, displayFile(opts.File))
}

// Store saves value to the keyring.
func Store(opts Options, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("token is empty")
	}
	if err := keyring.Set(opts.KeyringService, opts.KeyringAccount, value); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

// Delete removes the keyring copy. A missing entry is not an error.
func Delete(opts Options) error {
	if err := keyring.Delete(opts.KeyringService, opts.KeyringAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}

// Mask hides all but the last four characters for display.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

func displayFile(path string) string {
	if path == "" {
		return "the token file"
	}
	return path
}
