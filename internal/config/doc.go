// Package config loads and validates qcflow's TOML configuration.
package config
