// Package config loads wamsg's JSON or YAML configuration, applies
// defaults and environment overrides, and publishes hot reloads.
package config
