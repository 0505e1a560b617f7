// Package config loads, normalizes, and validates the TOML configuration
// that drives scoring, decision policy, and the cache location.
package config
