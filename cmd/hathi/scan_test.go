package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/hathi/internal/config"
	"github.com/nao1215/hathi/internal/model"
)

// parseScanFlags returns the config built from args without running a scan.
func parseScanFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	cmd := NewScanCmd()
	cmd.PersistentFlags().BoolP("verbose", "v", false, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return buildConfig(cmd, cmd.Flags().Args())
}

// writeFile writes content into dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()
	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "username", shorthand: "u", def: "[]"},
		{name: "usernames", shorthand: "U", def: ""},
		{name: "passwords", shorthand: "P", def: ""},
		{name: "hostname", shorthand: "H", def: ""},
		{name: "multiple", shorthand: "m", def: "false"},
		{name: "workers", shorthand: "w", def: "10"},
		{name: "batch", shorthand: "b", def: "10"},
		{name: "json", shorthand: "j", def: "false"},
		{name: "output", shorthand: "o", def: ""},
		{name: "config", shorthand: "c", def: ""},
		{name: "probe-timeout", def: "1s"},
		{name: "attempt-timeout", def: "5s"},
		{name: "rate", def: "0"},
		{name: "postgres", def: "false"},
		{name: "mssql", def: "false"},
		{name: "mysql", def: "false"},
		{name: "markdown", def: "false"},
		{name: "no-ssl", def: "false"},
		{name: "proxy", def: ""},
		{name: "save", def: "false"},
		{name: "metrics-addr", def: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("expected default %q, got %q", tt.def, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("maps flags onto the config", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "defaults: {}\n")
		cfg, err := parseScanFlags(t,
			"-c", cfgPath,
			"-u", "postgres", "-u", "admin",
			"-P", "pw.txt",
			"-H", "corp",
			"--postgres", "--mysql",
			"-m", "--no-ssl",
			"-w", "4", "-b", "3",
			"--rate", "2.5",
			"--probe-timeout", "250ms",
			"--attempt-timeout", "2s",
			"--markdown", "-o", "out.md",
			"10.0.0.1", "10.0.0.0/30",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(cfg.Usernames, []string{"postgres", "admin"}) {
			t.Errorf("unexpected usernames %v", cfg.Usernames)
		}
		if cfg.PasswordsFile != "pw.txt" || cfg.Hostname != "corp" {
			t.Errorf("unexpected credentials config %+v", cfg)
		}
		if !slices.Equal(cfg.Types, []model.ServiceType{model.ServiceTypePostgres, model.ServiceTypeMySQL}) {
			t.Errorf("unexpected types %v", cfg.Types)
		}
		if !cfg.Multiple || !cfg.NoSSL {
			t.Error("expected multiple and no-ssl")
		}
		if cfg.Workers != 4 || cfg.BatchSize != 3 || cfg.Rate != 2.5 {
			t.Errorf("unexpected concurrency %d/%d/%v", cfg.Workers, cfg.BatchSize, cfg.Rate)
		}
		if cfg.ProbeTimeout != 250*time.Millisecond || cfg.AttemptTimeout != 2*time.Second {
			t.Errorf("unexpected timeouts %v/%v", cfg.ProbeTimeout, cfg.AttemptTimeout)
		}
		if !cfg.MarkdownReport || cfg.ReportFile != "out.md" {
			t.Error("expected markdown report to out.md")
		}
		if !slices.Equal(cfg.Targets, []string{"10.0.0.1", "10.0.0.0/30"}) {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("no type flags means all types", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "defaults: {}\n")
		cfg, err := parseScanFlags(t, "-c", cfgPath, "-P", "pw.txt", "db1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.ServiceTypes(), model.AllServiceTypes()) {
			t.Errorf("expected all types, got %v", cfg.ServiceTypes())
		}
	})

	t.Run("config file fills unset flags", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), ".hathi", `defaults:
  passwords: /srv/passwords.txt
  types: [mssql]
  workers: 2
hosts:
  db1:
    database: billing
`)
		cfg, err := parseScanFlags(t, "-c", cfgPath, "-w", "6", "db1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.PasswordsFile != "/srv/passwords.txt" {
			t.Errorf("expected passwords from file, got %q", cfg.PasswordsFile)
		}
		if !slices.Equal(cfg.Types, []model.ServiceType{model.ServiceTypeMSSQL}) {
			t.Errorf("expected mssql from file, got %v", cfg.Types)
		}
		if cfg.Workers != 6 {
			t.Errorf("expected flag to win, got %d workers", cfg.Workers)
		}
		if cfg.HostConfigs.Hosts["db1"].Database != "billing" {
			t.Error("expected host overrides to be loaded")
		}
	})

	t.Run("missing explicit config file fails", func(t *testing.T) {
		t.Parallel()

		_, err := parseScanFlags(t, "-c", filepath.Join(t.TempDir(), "nope.yaml"), "db1")
		if !errors.Is(err, config.ErrConfigNotFound) || !strings.Contains(err.Error(), "nope.yaml") {
			t.Errorf("expected ErrConfigNotFound naming the path, got %v", err)
		}
	})

	t.Run("config file with unknown type fails before scanning", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), ".hathi", "defaults:\n  types: [oracle]\n")
		_, err := parseScanFlags(t, "-c", cfgPath, "-P", "pw.txt", "db1")
		if !errors.Is(err, config.ErrInvalidServiceType) {
			t.Errorf("expected ErrInvalidServiceType, got %v", err)
		}
	})

	t.Run("json and markdown conflict", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "defaults: {}\n")
		cfg, err := parseScanFlags(t, "-c", cfgPath, "-P", "pw.txt", "--json", "--markdown", "db1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(cfg.Validate(), config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", cfg.Validate())
		}
	})
}

func TestHostOptions(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Usernames = []string{"sa"}
	cfg.HostConfigs.Hosts["db1"] = config.HostConfig{Database: "billing", Hostname: "corp"}

	if got := hostOptions(cfg)(model.ReachablePair{Host: "db1", Type: model.ServiceTypeMSSQL}); len(got) != 3 {
		t.Errorf("expected 3 options, got %d", len(got))
	}

	cfg.HostConfigs = nil
	if got := hostOptions(cfg)(model.ReachablePair{Host: "db1"}); got != nil {
		t.Errorf("expected no options without a config file, got %d", len(got))
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		json      bool
		verbose   bool
		wantDebug bool
	}{
		{name: "quiet table", json: false, verbose: false, wantDebug: false},
		{name: "verbose table", json: false, verbose: true, wantDebug: true},
		{name: "verbose json stays quiet", json: true, verbose: true, wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.JSONReport = tt.json
			cfg.Verbose = tt.verbose

			logger := setupLogger(&bytes.Buffer{}, cfg)
			if got := logger.Enabled(t.Context(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

// closingListener accepts connections and closes them at once, so discovery
// sees an open port but every login attempt fails.
func closingListener(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().String()
}

func TestScanCommand(t *testing.T) {
	t.Parallel()

	t.Run("scans a refusing service and records the run", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		addr := closingListener(t)
		pwPath := writeFile(t, dir, "pw.txt", "secret\nhunter2\n")
		cfgPath := writeFile(t, dir, ".hathi", "defaults: {}\n")
		dbDir := filepath.Join(dir, "data")

		var stdout, stderr bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs([]string{
			"scan", "-v", "--postgres", "--no-ssl", "--json",
			"-c", cfgPath,
			"-P", pwPath,
			"--attempt-timeout", "2s",
			"--save", "--db-dir", dbDir,
			addr,
		})
		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr.String())
		}

		var matches []map[string]string
		if err := json.Unmarshal(stdout.Bytes(), &matches); err != nil {
			t.Fatalf("expected JSON array, got %q: %v", stdout.String(), err)
		}
		if len(matches) != 0 {
			t.Errorf("expected no matches, got %v", matches)
		}
		if strings.Contains(stderr.String(), "port open") {
			t.Errorf("expected no debug logs under --json, got %q", stderr.String())
		}

		var history bytes.Buffer
		root = NewRootCmd()
		root.SetOut(&history)
		root.SetArgs([]string{"history", "--runs", "--db-dir", dbDir})
		if err := root.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(history.String(), "hosts=1 reachable=1 matches=0") {
			t.Errorf("expected recorded run, got %q", history.String())
		}
	})

	t.Run("writes the table report to a file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		pwPath := writeFile(t, dir, "pw.txt", "secret\n")
		cfgPath := writeFile(t, dir, ".hathi", "defaults: {}\n")
		outPath := filepath.Join(dir, "reports", "scan.txt")

		// Nothing listens on this port, so discovery finds no service.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		var stdout bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"scan", "--mysql", "-c", cfgPath, "-P", pwPath, "-o", outPath, addr})
		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(got), "0 match(es) on 0 reachable service(s)") {
			t.Errorf("unexpected report %q", got)
		}
		if !strings.Contains(stdout.String(), "0 match(es) on 0 reachable service(s)") {
			t.Errorf("expected the table on stdout too, got %q", stdout.String())
		}
		info, err := os.Stat(outPath)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600, got %o", perm)
		}
	})

	t.Run("rejects missing password list", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeFile(t, dir, ".hathi", "defaults: {}\n")

		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"scan", "-c", cfgPath, "-P", filepath.Join(dir, "missing.txt"), "127.0.0.1"})
		err := root.Execute()
		if err == nil || !strings.Contains(err.Error(), "password list") {
			t.Errorf("expected password list error, got %v", err)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeFile(t, t.TempDir(), ".hathi", "defaults: {}\n")
		root := NewRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"scan", "-c", cfgPath, "-P", "pw.txt"})
		err := root.Execute()
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})
}
