// Package config loads, normalizes, and validates stillmotion configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the CLI needs:
// assembly defaults, logging, the timestamp cache, and encoder limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
