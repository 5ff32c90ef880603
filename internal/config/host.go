package config

// HostConfig holds overrides for a single target host.
type HostConfig struct {
	// Hostname is the authentication-domain suffix for this host.
	Hostname string `yaml:"hostname,omitempty"`

	// Usernames replaces the username list for this host.
	Usernames []string `yaml:"usernames,omitempty"`

	// Database replaces the service's default database name.
	Database string `yaml:"database,omitempty"`
}

// Defaults holds values applied to every scan unless the matching CLI flag
// was given.
type Defaults struct {
	Usernames []string `yaml:"usernames,omitempty"`
	Passwords string   `yaml:"passwords,omitempty"`
	Hostname  string   `yaml:"hostname,omitempty"`
	Types     []string `yaml:"types,omitempty"`
	Workers   int      `yaml:"workers,omitempty"`
	NoSSL     bool     `yaml:"noSSL,omitempty"`
	Proxy     string   `yaml:"proxy,omitempty"`
}

// File represents the structure of the .hathi configuration file.
type File struct {
	// Hosts maps a target host, exactly as it appears after range
	// expansion, to its overrides.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults applies to the whole scan.
	Defaults Defaults `yaml:"defaults,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Hosts: make(map[string]HostConfig)}
}

// GetHostConfig returns the settings for host: its overrides merged over
// base, which holds the scan-wide hostname suffix and usernames.
func (f *File) GetHostConfig(host string, base HostConfig) HostConfig {
	result := base

	hc, ok := f.Hosts[host]
	if !ok {
		return result
	}
	if hc.Hostname != "" {
		result.Hostname = hc.Hostname
	}
	if len(hc.Usernames) > 0 {
		result.Usernames = hc.Usernames
	}
	if hc.Database != "" {
		result.Database = hc.Database
	}
	return result
}

// ApplyDefaults copies the file defaults into cfg. changed reports whether
// the user set a CLI flag by name; flags that were set always win.
func (f *File) ApplyDefaults(cfg *Config, changed func(flag string) bool) error {
	d := f.Defaults

	if len(d.Usernames) > 0 && len(cfg.Usernames) == 0 && cfg.UsernamesFile == "" {
		cfg.Usernames = append([]string(nil), d.Usernames...)
	}
	if d.Passwords != "" && cfg.PasswordsFile == "" {
		cfg.PasswordsFile = d.Passwords
	}
	if d.Hostname != "" && cfg.Hostname == "" {
		cfg.Hostname = d.Hostname
	}
	if d.Workers > 0 && !changed("workers") {
		cfg.Workers = d.Workers
	}
	if d.NoSSL && !changed("no-ssl") {
		cfg.NoSSL = true
	}
	if d.Proxy != "" && cfg.ProxyAddress == "" {
		cfg.ProxyAddress = d.Proxy
	}

	if len(d.Types) > 0 && len(cfg.Types) == 0 {
		types, err := parseTypes(d.Types)
		if err != nil {
			return err
		}
		cfg.Types = types
	}

	return nil
}
