// Package config loads, validates, and normalizes marketcast configuration.
//
// Settings come from a TOML file (default ~/.config/marketcast/config.toml,
// falling back to ./marketcast.toml); credentials are overlaid from the
// environment so secrets never land on disk. Path fields are tilde-expanded
// and made absolute during normalization.
package config
