// Package config loads, normalizes, and validates curator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays the environment variables the
// deployment relies on for secrets (GEMINI_API_KEY, WP_PASS, TELEGRAM_TOKEN and
// friends) through envconfig. The Config type centralizes every knob the daemon
// and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
