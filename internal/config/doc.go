// Package config holds the scan configuration: CLI-derived options, their
// defaults and validation, and the optional .hathi YAML file with shared
// defaults and per-host overrides.
package config
