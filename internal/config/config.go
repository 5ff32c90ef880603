package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "hathi"

	// DefaultProbeTimeout bounds each discovery connect probe.
	DefaultProbeTimeout = 1 * time.Second

	// DefaultAttemptTimeout bounds a single login attempt, including the
	// TLS handshake and the server's authentication reply.
	DefaultAttemptTimeout = 5 * time.Second

	// DefaultWorkers is the number of password attempts in flight per username.
	DefaultWorkers = 10

	// DefaultBatchSize is the number of (host, type) sessions scanned at once.
	DefaultBatchSize = 10
)

// Config holds all configuration options for a scan.
// It is populated from CLI flags, optionally completed from a .hathi file,
// and passed down explicitly.
type Config struct {
	// Targets are host arguments before expansion: addresses, hostnames,
	// CIDR blocks, dash ranges or comma lists.
	Targets []string

	// Usernames are tried in order. Empty means the adapters' defaults.
	Usernames []string

	// UsernamesFile is a newline-delimited username list appended to Usernames.
	UsernamesFile string

	// PasswordsFile is the newline-delimited password candidate list.
	PasswordsFile string

	// Hostname is the authentication-domain suffix appended as "user@hostname".
	Hostname string

	// Types restricts the scan to these service types. Empty means all.
	Types []model.ServiceType

	// Multiple keeps searching other usernames after a match.
	Multiple bool

	// JSONReport writes the matches as a JSON array.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the matches as a Markdown document.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	// Parent directories are created as needed.
	ReportFile string

	// NoSSL disables TLS for adapters that support it.
	NoSSL bool

	// Workers is the per-username attempt ceiling.
	Workers int

	// BatchSize is the number of sessions scanned concurrently.
	BatchSize int

	// Rate limits attempts per second per session. Zero means unlimited.
	Rate float64

	// ProxyAddress routes probes and attempts through a SOCKS5 proxy.
	ProxyAddress string

	// ProbeTimeout bounds a discovery probe.
	ProbeTimeout time.Duration

	// AttemptTimeout bounds a single login attempt.
	AttemptTimeout time.Duration

	// Verbose logs every username and attempt and prints progress lines.
	Verbose bool

	// SaveToDB records matches in the history database under DBDir.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/hathi on Linux).
	DBDir string

	// MetricsAddr exposes Prometheus metrics on this address when set.
	MetricsAddr string

	// ConfigFilePath is the path given with --config. Empty means search
	// the current and home directories for .hathi.
	ConfigFilePath string

	// HostConfigs holds per-host overrides loaded from the config file.
	HostConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:        DefaultWorkers,
		BatchSize:      DefaultBatchSize,
		ProbeTimeout:   DefaultProbeTimeout,
		AttemptTimeout: DefaultAttemptTimeout,
		DBDir:          XDGDataDir(),
		HostConfigs:    NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for hathi.
// On Linux: ~/.local/share/hathi
// On macOS: ~/Library/Application Support/hathi
// On Windows: %LOCALAPPDATA%\hathi
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for hathi.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ServiceTypes returns the types to scan. An empty selection means all.
func (c *Config) ServiceTypes() []model.ServiceType {
	if len(c.Types) == 0 {
		return model.AllServiceTypes()
	}
	return append([]model.ServiceType(nil), c.Types...)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.PasswordsFile == "" {
		return ErrNoPasswords
	}

	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}

	if c.AttemptTimeout <= 0 {
		return ErrInvalidAttemptTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Rate < 0 {
		return ErrInvalidRate
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	for _, t := range c.Types {
		if !t.Valid() {
			return ErrInvalidServiceType
		}
	}

	if c.ProxyAddress != "" && !netdial.IsValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}

	return nil
}
