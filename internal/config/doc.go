// Package config loads, normalizes, and validates the adrescue TOML
// configuration. The loaded Config is immutable for the duration of a run
// and is injected into every component at construction time.
package config
