// Package config loads and validates the TOML configuration that drives the
// instantcards pipeline. Load resolves the config path, applies defaults for
// missing values, expands filesystem paths, pulls credentials from the
// environment when the file omits them, and validates the result before any
// subsystem sees it.
package config
