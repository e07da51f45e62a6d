// Package config loads, normalizes, and validates foodlog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FOODLOG_WORKER_URL and GEMINI_API_KEY. The Config type centralizes every
// knob the CLI, watcher, and tool server need: where the note lives, where
// state and logs go, daily targets, and how meals are estimated.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
