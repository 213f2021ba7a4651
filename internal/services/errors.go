package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth            = errors.New("authentication failed")
	ErrNetwork         = errors.New("network failure")
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker so callers can classify it with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run rather than degrade a
// single subject. A rejected token or a broken configuration fails every
// later request too; a malformed payload only affects the one it came from.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrConfiguration)
}

// ExitHint returns a short remediation line for the CLI, or "" when there is
// nothing specific to suggest.
func ExitHint(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "the access token was rejected; create a new one at https://next.bgm.tv/demo/access-token"
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrTransient):
		return "the run stopped early; rerun the same command to resume from the cache"
	case errors.Is(err, ErrConfiguration):
		return "check the configuration with 'bgmexport config validate'"
	default:
		return ""
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
