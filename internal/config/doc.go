// Package config loads, normalizes, and validates adtrim configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY, OPENAI_MODEL, LOG_LEVEL and LOG_FORMAT. The Config type
// centralizes every knob the CLI and watcher need so transcription,
// classification, audio editing and evaluation settings are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
