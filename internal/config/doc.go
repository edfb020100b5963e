// Package config loads, normalizes, and validates the TOML configuration
// that drives every earmark subsystem.
package config
