package bangumi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"bgmexport/internal/services"
)

// StatusError captures a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bangumi: unexpected status %s", e.Status)
	}
	return fmt.Sprintf("bangumi: unexpected status %s: %s", e.Status, e.Body)
}

func classifyStatus(operation string, status *StatusError) error {
	switch {
	case status.StatusCode == http.StatusUnauthorized, status.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "bangumi", operation, "access token rejected", status)
	case status.StatusCode == http.StatusNotFound, status.StatusCode == http.StatusBadRequest:
		return services.Wrap(services.ErrNotFound, "bangumi", operation, "no such resource", status)
	case status.StatusCode == http.StatusTooManyRequests, status.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "bangumi", operation, "server asked us to back off", status)
	default:
		return services.Wrap(services.ErrNetwork, "bangumi", operation, "request rejected", status)
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, server errors, timeouts,
// connection errors).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrAuth) || errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrUnexpectedShape) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{"connection reset", "connection refused", "eof", "temporary failure"} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
