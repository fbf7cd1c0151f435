// Package config loads, normalizes, and validates szurutools configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SZURU_BASE and SZURU_TOKEN. The Config type centralizes every knob the CLI
// and the API server need, so board credentials, the downloader and the state
// directory are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
