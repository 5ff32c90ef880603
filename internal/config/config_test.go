package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/hathi/internal/model"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ProbeTimeout is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeTimeout != time.Second {
			t.Errorf("expected ProbeTimeout to be 1s, got %v", cfg.ProbeTimeout)
		}
	})

	t.Run("default AttemptTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.AttemptTimeout != 5*time.Second {
			t.Errorf("expected AttemptTimeout to be 5s, got %v", cfg.AttemptTimeout)
		}
	})

	t.Run("default Workers is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 10 {
			t.Errorf("expected Workers to be 10, got %d", cfg.Workers)
		}
	})

	t.Run("default BatchSize is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 10 {
			t.Errorf("expected BatchSize to be 10, got %d", cfg.BatchSize)
		}
	})

	t.Run("rate is unlimited and multiple is off", func(t *testing.T) {
		t.Parallel()
		if cfg.Rate != 0 {
			t.Errorf("expected Rate 0, got %v", cfg.Rate)
		}
		if cfg.Multiple {
			t.Error("expected Multiple to be false")
		}
	})

	t.Run("history dir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})

	t.Run("host configs are initialized", func(t *testing.T) {
		t.Parallel()
		if cfg.HostConfigs == nil || cfg.HostConfigs.Hosts == nil {
			t.Error("expected empty host config file")
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"10.0.0.1"}
		cfg.PasswordsFile = "passwords.txt"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "no target", modify: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "no passwords", modify: func(c *Config) { c.PasswordsFile = "" }, wantErr: ErrNoPasswords},
		{name: "zero probe timeout", modify: func(c *Config) { c.ProbeTimeout = 0 }, wantErr: ErrInvalidProbeTimeout},
		{name: "negative attempt timeout", modify: func(c *Config) { c.AttemptTimeout = -time.Second }, wantErr: ErrInvalidAttemptTimeout},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "zero batch", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "negative rate", modify: func(c *Config) { c.Rate = -1 }, wantErr: ErrInvalidRate},
		{name: "zero rate is unlimited", modify: func(c *Config) { c.Rate = 0 }},
		{
			name:    "json and markdown",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "unknown service type",
			modify:  func(c *Config) { c.Types = []model.ServiceType{model.ServiceType(99)} },
			wantErr: ErrInvalidServiceType,
		},
		{name: "bad proxy", modify: func(c *Config) { c.ProxyAddress = "localhost" }, wantErr: ErrInvalidProxyAddress},
		{name: "good proxy", modify: func(c *Config) { c.ProxyAddress = "127.0.0.1:1080" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigServiceTypes(t *testing.T) {
	t.Parallel()

	t.Run("empty selection means all", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if got := cfg.ServiceTypes(); !slices.Equal(got, model.AllServiceTypes()) {
			t.Errorf("expected all types, got %v", got)
		}
	})

	t.Run("selection is returned as a copy", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Types = []model.ServiceType{model.ServiceTypeMySQL}
		got := cfg.ServiceTypes()
		got[0] = model.ServiceTypePostgres
		if cfg.Types[0] != model.ServiceTypeMySQL {
			t.Error("ServiceTypes must not alias the config")
		}
	})
}

func TestFileGetHostConfig(t *testing.T) {
	t.Parallel()

	f := &File{
		Hosts: map[string]HostConfig{
			"10.0.0.5": {Database: "billing"},
			"10.0.0.6": {Hostname: "eu", Usernames: []string{"app", "report"}},
		},
	}
	base := HostConfig{Hostname: "corp", Usernames: []string{"sa"}}

	tests := []struct {
		name string
		host string
		want HostConfig
	}{
		{
			name: "unknown host keeps base",
			host: "10.0.0.9",
			want: HostConfig{Hostname: "corp", Usernames: []string{"sa"}},
		},
		{
			name: "database override keeps base suffix and usernames",
			host: "10.0.0.5",
			want: HostConfig{Hostname: "corp", Usernames: []string{"sa"}, Database: "billing"},
		},
		{
			name: "host values replace base",
			host: "10.0.0.6",
			want: HostConfig{Hostname: "eu", Usernames: []string{"app", "report"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := f.GetHostConfig(tt.host, base)
			if got.Hostname != tt.want.Hostname || got.Database != tt.want.Database ||
				!slices.Equal(got.Usernames, tt.want.Usernames) {
				t.Errorf("GetHostConfig(%q) = %+v, want %+v", tt.host, got, tt.want)
			}
		})
	}
}

func TestFileApplyDefaults(t *testing.T) {
	t.Parallel()

	f := &File{Defaults: Defaults{
		Usernames: []string{"postgres", "admin"},
		Passwords: "/etc/hathi/passwords.txt",
		Hostname:  "corp",
		Types:     []string{"postgresql", "mysql"},
		Workers:   4,
		NoSSL:     true,
		Proxy:     "127.0.0.1:1080",
	}}
	none := func(string) bool { return false }

	t.Run("fills unset fields", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := f.ApplyDefaults(cfg, none); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.Usernames, []string{"postgres", "admin"}) {
			t.Errorf("unexpected usernames %v", cfg.Usernames)
		}
		if cfg.PasswordsFile != "/etc/hathi/passwords.txt" {
			t.Errorf("unexpected passwords file %q", cfg.PasswordsFile)
		}
		if cfg.Hostname != "corp" {
			t.Errorf("unexpected hostname %q", cfg.Hostname)
		}
		if !slices.Equal(cfg.Types, []model.ServiceType{model.ServiceTypePostgres, model.ServiceTypeMySQL}) {
			t.Errorf("unexpected types %v", cfg.Types)
		}
		if cfg.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Workers)
		}
		if !cfg.NoSSL {
			t.Error("expected NoSSL")
		}
		if cfg.ProxyAddress != "127.0.0.1:1080" {
			t.Errorf("unexpected proxy %q", cfg.ProxyAddress)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Usernames = []string{"sa"}
		cfg.PasswordsFile = "mine.txt"
		cfg.Workers = 2
		cfg.Types = []model.ServiceType{model.ServiceTypeMSSQL}
		changed := func(flag string) bool { return flag == "workers" || flag == "no-ssl" }

		if err := f.ApplyDefaults(cfg, changed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.Usernames, []string{"sa"}) {
			t.Errorf("usernames overridden: %v", cfg.Usernames)
		}
		if cfg.PasswordsFile != "mine.txt" {
			t.Errorf("passwords overridden: %q", cfg.PasswordsFile)
		}
		if cfg.Workers != 2 {
			t.Errorf("workers overridden: %d", cfg.Workers)
		}
		if cfg.NoSSL {
			t.Error("no-ssl overridden")
		}
		if !slices.Equal(cfg.Types, []model.ServiceType{model.ServiceTypeMSSQL}) {
			t.Errorf("types overridden: %v", cfg.Types)
		}
	})

	t.Run("usernames file suppresses default usernames", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.UsernamesFile = "users.txt"
		if err := f.ApplyDefaults(cfg, none); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Usernames) != 0 {
			t.Errorf("expected no usernames, got %v", cfg.Usernames)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()

		bad := &File{Defaults: Defaults{Types: []string{"oracle"}}}
		err := bad.ApplyDefaults(NewConfig(), none)
		if !errors.Is(err, ErrInvalidServiceType) {
			t.Errorf("expected ErrInvalidServiceType, got %v", err)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.hathi")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if !strings.Contains(err.Error(), "/nonexistent/path/.hathi") {
			t.Errorf("expected the path in %q", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hathi")
		content := `defaults:
  usernames: [postgres, sa]
  passwords: /tmp/passwords.txt
  types: [postgres]
  workers: 20
  noSSL: true
hosts:
  10.0.0.5:
    hostname: corp
    database: billing
    usernames:
      - report
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.Defaults.Usernames, []string{"postgres", "sa"}) {
			t.Errorf("unexpected default usernames %v", cfg.Defaults.Usernames)
		}
		if cfg.Defaults.Workers != 20 || !cfg.Defaults.NoSSL {
			t.Errorf("unexpected defaults %+v", cfg.Defaults)
		}

		host, ok := cfg.Hosts["10.0.0.5"]
		if !ok {
			t.Fatal("expected 10.0.0.5 in hosts")
		}
		if host.Hostname != "corp" || host.Database != "billing" {
			t.Errorf("unexpected host config %+v", host)
		}
		if !slices.Equal(host.Usernames, []string{"report"}) {
			t.Errorf("unexpected host usernames %v", host.Usernames)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hathi")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Hosts map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hathi")
		if err := os.WriteFile(configPath, []byte("defaults:\n  workers: 3\nhosts:\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Hosts == nil {
			t.Error("expected Hosts map to be initialized")
		}
	})

	t.Run("accepts an empty file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".hathi")
		if err := os.WriteFile(configPath, nil, 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Hosts == nil || len(cfg.Defaults.Types) != 0 {
			t.Errorf("expected an empty file, got %+v", cfg)
		}
	})

	t.Run("rejects invalid values at load time", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			content string
			wantErr error
			wantMsg string
		}{
			{
				name:    "unknown service type",
				content: "defaults:\n  types: [postgres, oracle]\n",
				wantErr: ErrInvalidServiceType,
				wantMsg: "defaults.types",
			},
			{
				name:    "negative workers",
				content: "defaults:\n  workers: -1\n",
				wantErr: ErrInvalidWorkers,
				wantMsg: "defaults.workers",
			},
			{
				name:    "proxy without port",
				content: "defaults:\n  proxy: 127.0.0.1\n",
				wantErr: ErrInvalidProxyAddress,
				wantMsg: "defaults.proxy",
			},
			{
				name:    "misspelled key",
				content: "defaults:\n  usernmes: [sa]\n",
				wantMsg: "usernmes",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				configPath := filepath.Join(t.TempDir(), ".hathi")
				if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfigFile(configPath)
				if err == nil {
					t.Fatal("expected an error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if !strings.Contains(err.Error(), tt.wantMsg) || !strings.Contains(err.Error(), configPath) {
					t.Errorf("expected %q and the path in %q", tt.wantMsg, err)
				}
			})
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		got, err := FindConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		t.Parallel()

		got, err := FindConfigFile("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
		if got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end in %q, got %q", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end in %q, got %q", AppName, XDGConfigDir())
	}
}
