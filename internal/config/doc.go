// Package config loads, normalizes, and validates sarchain configuration data.
//
// It supplies defaults for the ambient settings and stage parameter tables,
// expands user paths (including tilde shortcuts), and reads TOML files. The
// pipeline inputs themselves (products, output directory, DEM, graph file and
// discovery directory) have no defaults and must be set explicitly.
//
// The returned Config is treated as an immutable value by every entry point.
package config
