package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/hathi/internal/config"
	"github.com/nao1215/hathi/internal/database"
	"github.com/nao1215/hathi/internal/discovery"
	hlog "github.com/nao1215/hathi/internal/log"
	"github.com/nao1215/hathi/internal/metrics"
	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
	"github.com/nao1215/hathi/internal/pipeline"
	"github.com/nao1215/hathi/internal/protocol"
	"github.com/nao1215/hathi/internal/report"
	"github.com/nao1215/hathi/internal/scanner"
	"github.com/nao1215/hathi/internal/target"
	"github.com/nao1215/hathi/internal/wordlist"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [host|cidr|range ...]",
		Short: "Discover database services and test them against a password list",
		Long: `Scan probes every target for PostgreSQL (5432), Microsoft SQL Server (1433)
and MySQL (3306), then tries each username with every password from the list
on each open service.

A session stops at the first accepted credential (use --multiple to keep
searching other usernames), on a timeout, or on an error it cannot classify.
A wrong password moves on to the next candidate; an unknown username moves
on to the next username.

Targets may be hostnames, addresses, host:port, CIDR blocks (10.0.0.0/24),
dash ranges (10.0.0.1-20 or 10.0.0.1-10.0.0.5) and comma lists.

Examples:
  # Scan a subnet for every service type
  hathi scan -P passwords.txt 10.0.0.0/24

  # PostgreSQL only, two usernames, JSON output
  hathi scan --postgres -u postgres -u admin -P passwords.txt --json db1 db2

  # Through a SOCKS5 proxy, recording matches in the history database
  hathi scan --proxy 127.0.0.1:1080 --save -P passwords.txt 10.1.0.1-10

Configuration file (.hathi) example:
  defaults:
    passwords: /srv/lists/passwords.txt
    types: [postgres, mysql]
  hosts:
    10.0.0.5:
      database: billing`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Credential flags
	cmd.Flags().StringArrayP("username", "u", nil,
		"Username to try (repeatable; default: each service's built-in list)")
	cmd.Flags().StringP("usernames", "U", "",
		"File with one username per line")
	cmd.Flags().StringP("passwords", "P", "",
		"File with one password candidate per line")
	cmd.Flags().StringP("hostname", "H", "",
		"Authentication-domain suffix appended to usernames as user@hostname")

	// Service selection
	cmd.Flags().Bool("postgres", false, "Scan PostgreSQL")
	cmd.Flags().Bool("mssql", false, "Scan Microsoft SQL Server")
	cmd.Flags().Bool("mysql", false, "Scan MySQL")

	// Scan behavior
	cmd.Flags().BoolP("multiple", "m", false,
		"Keep searching other usernames after a match")
	cmd.Flags().Bool("no-ssl", false, "Disable TLS for services that support it")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Password attempts in flight per username")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of services scanned concurrently")
	cmd.Flags().Float64("rate", 0,
		"Maximum attempts per second per service (0 = unlimited)")
	cmd.Flags().String("proxy", "",
		"Route probes and logins through a SOCKS5 proxy (host:port)")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for each discovery probe")
	cmd.Flags().Duration("attempt-timeout", config.DefaultAttemptTimeout,
		"Timeout for each login attempt")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .hathi in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History and telemetry
	cmd.Flags().Bool("save", false,
		"Record matches in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")
	cmd.Flags().String("metrics-addr", "",
		"Expose Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Usernames, err = flags.GetStringArray("username"); err != nil {
		return nil, err
	}
	if cfg.UsernamesFile, err = flags.GetString("usernames"); err != nil {
		return nil, err
	}
	if cfg.PasswordsFile, err = flags.GetString("passwords"); err != nil {
		return nil, err
	}
	if cfg.Hostname, err = flags.GetString("hostname"); err != nil {
		return nil, err
	}

	for _, t := range model.AllServiceTypes() {
		selected, err := flags.GetBool(t.String())
		if err != nil {
			return nil, err
		}
		if selected {
			cfg.Types = append(cfg.Types, t)
		}
	}

	if cfg.Multiple, err = flags.GetBool("multiple"); err != nil {
		return nil, err
	}
	if cfg.NoSSL, err = flags.GetBool("no-ssl"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Rate, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
		return nil, err
	}
	if cfg.AttemptTimeout, err = flags.GetDuration("attempt-timeout"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	configPath, err := config.FindConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		cfg.HostConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.HostConfigs.ApplyDefaults(cfg, flags.Changed); err != nil {
		return nil, fmt.Errorf("invalid config file defaults: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates the redacting logger. JSON reports get JSON logs at
// warn level whatever --verbose says, so stderr carries no attempt chatter.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONReport {
		return hlog.NewSecureJSONLogger(w, false)
	}
	return hlog.NewSecureLogger(w, cfg.Verbose)
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	hosts, err := target.ExpandAll(cfg.Targets)
	if err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}

	if cfg.UsernamesFile != "" {
		names, err := wordlist.ReadFile(cfg.UsernamesFile)
		if err != nil {
			return fmt.Errorf("failed to read username list: %w", err)
		}
		cfg.Usernames = append(cfg.Usernames, names...)
	}

	// Fail before discovery rather than once per session.
	if _, err := wordlist.ReadFile(cfg.PasswordsFile); err != nil {
		return fmt.Errorf("failed to read password list: %w", err)
	}

	types := cfg.ServiceTypes()
	logger.Info("starting scan",
		"hosts", len(hosts),
		"types", len(types),
		"workers", cfg.Workers,
		"batchSize", cfg.BatchSize,
		"proxy", cfg.ProxyAddress != "",
	)

	dialer, adapterOpts, err := setupDialer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	registry := protocol.NewRegistry(adapterOpts...)
	prober := discovery.NewProber(
		discovery.WithDialer(dialer),
		discovery.WithTimeout(cfg.ProbeTimeout),
		discovery.WithLogger(logger),
	)

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	var (
		db    *database.HistoryDB
		runID string
	)
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.StartRun(ctx, len(hosts))
		if err != nil {
			return err
		}
		logger.Info("recording history", "path", db.Path(), "run", runID)
	}

	runner := pipeline.NewRunner(prober, registry, cfg.PasswordsFile, runnerOptions(cfg, logger, collector, stderr)...)

	// Saving must survive cancellation so interrupted runs keep their matches.
	saveCtx := context.WithoutCancel(ctx)
	human := !cfg.JSONReport && !cfg.MarkdownReport
	onMatch := func(m model.Match) {
		if human && cfg.Verbose {
			fmt.Fprintf(stderr, "[+] %s (%s) accepted %s\n", m.Host, m.Type, m.Username)
		}
		if db != nil {
			if err := db.SaveMatch(saveCtx, runID, m); err != nil {
				logger.Error("failed to save match", "host", m.Host, "error", err)
			}
		}
	}

	started := time.Now()
	result, runErr := runner.Run(ctx, hosts, types, onMatch)

	if db != nil {
		if err := db.FinishRun(saveCtx, runID, len(result.Reachable), len(result.Matches)); err != nil {
			logger.Error("failed to finish run", "run", runID, "error", err)
		}
	}

	rep := &report.Report{
		Matches:   result.Matches,
		Reachable: len(result.Reachable),
		StartedAt: started,
		Elapsed:   result.Elapsed,
	}
	if err := outputReport(cfg, rep, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("scan interrupted: %w", runErr)
	}
	return nil
}

// setupDialer returns the discovery dialer and adapter options, routing
// both through the SOCKS5 proxy when one is configured.
func setupDialer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (netdial.Dialer, []protocol.Option, error) {
	adapterOpts := []protocol.Option{
		protocol.WithTimeout(cfg.AttemptTimeout),
		protocol.WithNoSSL(cfg.NoSSL),
	}
	if cfg.ProxyAddress == "" {
		return netdial.Direct(), adapterOpts, nil
	}

	if err := netdial.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
		return nil, nil, fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w",
			cfg.ProxyAddress, err)
	}
	dialer, err := netdial.NewSOCKS5(cfg.ProxyAddress)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("proxy connection verified", "address", cfg.ProxyAddress)

	return dialer, append(adapterOpts, protocol.WithDialer(dialer)), nil
}

// runnerOptions maps the configuration onto pipeline and session options.
func runnerOptions(cfg *config.Config, logger *slog.Logger, rec pipeline.Recorder, stderr io.Writer) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(rec),
		pipeline.WithSessionOptions(
			scanner.WithUsernames(cfg.Usernames),
			scanner.WithSuffix(cfg.Hostname),
			scanner.WithMultiple(cfg.Multiple),
			scanner.WithVerbose(cfg.Verbose && !cfg.JSONReport),
			scanner.WithWorkers(cfg.Workers),
			scanner.WithRate(cfg.Rate),
			scanner.WithLogger(logger),
		),
		pipeline.WithPairOptions(hostOptions(cfg)),
	}

	if cfg.Verbose && !cfg.JSONReport {
		sink := metrics.NewTextSink(stderr)
		opts = append(opts, pipeline.WithProgress(func() scanner.Progress {
			return sink.Progress()
		}))
	}

	return opts
}

// hostOptions applies per-host overrides from the configuration file.
func hostOptions(cfg *config.Config) func(model.ReachablePair) []scanner.Option {
	base := config.HostConfig{Hostname: cfg.Hostname, Usernames: cfg.Usernames}
	return func(pair model.ReachablePair) []scanner.Option {
		if cfg.HostConfigs == nil {
			return nil
		}
		hc := cfg.HostConfigs.GetHostConfig(pair.Host, base)
		return []scanner.Option{
			scanner.WithUsernames(hc.Usernames),
			scanner.WithSuffix(hc.Hostname),
			scanner.WithDatabase(hc.Database),
		}
	}
}

// outputReport writes the report in the requested format to the report
// file, or to stdout. A human-readable run that writes to a file still
// prints the table to stdout.
func outputReport(cfg *config.Config, rep *report.Report, stdout io.Writer) error {
	if cfg.ReportFile == "" {
		_, err := formatWriter(cfg, stdout).Write(rep)
		return err
	}

	if err := ensureParentDir(cfg.ReportFile); err != nil {
		return err
	}
	// Reports contain cleartext credentials.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	writers := []report.Writer{formatWriter(cfg, f)}
	if !cfg.JSONReport {
		writers = append(writers, report.NewTableWriter(stdout))
	}
	_, err = report.NewMultiWriter(writers...).Write(rep)
	return err
}

// formatWriter returns the report writer selected by the format flags.
func formatWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewTableWriter(w)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
