// Package config loads, normalizes, and validates bgmexport configuration.
//
// It supplies defaults, reads an optional TOML file, applies a .env file and
// BGMEXPORT_* environment overrides, and expands user paths (including tilde
// shortcuts). Always obtain settings through this package so the sync engine
// receives sanitized paths and clear validation errors.
package config
