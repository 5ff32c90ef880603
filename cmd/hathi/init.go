package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/hathi/internal/config"
)

//go:embed templates/hathi.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new hathi configuration file",
		Long: `Initialize creates a commented .hathi configuration file.

The generated file documents the scan-wide defaults (usernames, password
list, hostname suffix, service types, workers, TLS, proxy) and per-host
overrides.

Examples:
  # Create .hathi in current directory
  hathi init

  # Create config file at a specific path
  hathi init -o myconfig.yaml

  # Force overwrite existing file
  hathi init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/hathi.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := writeFileSecure(outputPath, content); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to set scan defaults such as:")
	fmt.Fprintln(out, "  - Usernames and the password list")
	fmt.Fprintln(out, "  - Service types, workers and proxy")
	fmt.Fprintln(out, "  - Per-host databases and hostname suffixes")

	return nil
}

// writeFileSecure writes data to path with 0600 permissions, creating
// parent directories with 0750.
func writeFileSecure(path string, data []byte) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
