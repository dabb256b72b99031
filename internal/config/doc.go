// Package config loads, normalizes, and validates coverfill configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STEAMGRIDDB_API_KEY and IGDB_CLIENT_ID. The Config type centralizes every
// knob the CLI and enrichment engine need so provider credentials and the
// state directory are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
