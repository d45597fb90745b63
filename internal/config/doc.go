// Package config loads, normalizes, and validates the TOML configuration for
// mediasift binaries.
package config
