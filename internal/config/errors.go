package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no host, range or CIDR block is given.
	ErrNoTarget = errors.New("no target specified: provide one or more hosts, ranges or CIDR blocks")

	// ErrNoPasswords is returned when no password list is configured.
	ErrNoPasswords = errors.New("no password list specified: use --passwords or set defaults.passwords")

	// ErrInvalidProbeTimeout is returned when the discovery timeout is not positive.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive")

	// ErrInvalidAttemptTimeout is returned when the login timeout is not positive.
	ErrInvalidAttemptTimeout = errors.New("invalid attempt timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRate is returned when the attempt rate is negative.
	// Zero means unlimited.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidServiceType is returned when a selected service type is unknown.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")
)
