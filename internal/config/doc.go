// Package config loads, normalizes, and validates relay configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for sink credentials such as
// RELAY_TELEGRAM_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: fetch and encode tunables, size ceilings, sink credentials, batch
// cooldown timing, and the operator control surfaces.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical sink names, and clear validation errors.
package config
