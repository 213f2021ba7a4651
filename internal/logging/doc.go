// Package logging assembles structured slog loggers and formatting helpers
// used across bgmexport.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so sync code can tag log lines with the
// run ID, phase, and subject being processed. Logs go to stderr by default so
// the terminal summary on stdout stays clean.
package logging
