package services_test

import (
	"errors"
	"strings"
	"testing"

	"bgmexport/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNetwork, "bangumi", "collections", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"bangumi", "collections", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrAuth, "bangumi", "me", "401", nil), true},
		{services.Wrap(services.ErrConfiguration, "workflow", "run", "missing", nil), true},
		{services.Wrap(services.ErrUnexpectedShape, "bangumi", "episodes", "decode", nil), false},
		{services.Wrap(services.ErrNetwork, "bangumi", "episodes", "timeout", nil), false},
		{services.Wrap(services.ErrNotFound, "bangumi", "episodes", "404", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.want {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestExitHint(t *testing.T) {
	if hint := services.ExitHint(services.Wrap(services.ErrNetwork, "", "", "x", nil)); !strings.Contains(hint, "resume") {
		t.Fatalf("unexpected hint %q", hint)
	}
	if hint := services.ExitHint(errors.New("plain")); hint != "" {
		t.Fatalf("expected no hint, got %q", hint)
	}
}
