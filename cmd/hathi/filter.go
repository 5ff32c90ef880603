package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/hathi/internal/wordlist"
)

// NewFilterCmd creates the filter command.
func NewFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [wordlist ...]",
		Short: "Keep only passwords that meet a complexity policy",
		Long: `Filter reads password candidates and keeps those of at least 8 characters
that contain a digit, a lower-case letter, an upper-case letter and one of
@#$%^&+=. Use it to trim a list down to what a server's password policy
would have accepted.

With no arguments, candidates are read from standard input.

Examples:
  hathi filter rockyou.txt > complex.txt
  cat a.txt b.txt | hathi filter -o complex.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runFilterCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Write kept candidates to this file instead of stdout")

	return cmd
}

func runFilterCmd(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath != "" {
		if err := ensureParentDir(outputPath); err != nil {
			return err
		}
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	kept := 0
	if len(args) == 0 {
		n, err := wordlist.Filter(cmd.InOrStdin(), out, wordlist.Complex)
		if err != nil {
			return fmt.Errorf("failed to filter standard input: %w", err)
		}
		kept = n
	}
	for _, path := range args {
		n, err := filterFile(path, out)
		if err != nil {
			return err
		}
		kept += n
	}

	if getVerboseFlag(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "kept %d candidate(s)\n", kept)
	}
	return nil
}

func filterFile(path string, w io.Writer) (int, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided wordlist path is intentional
	if err != nil {
		return 0, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close()

	n, err := wordlist.Filter(f, w, wordlist.Complex)
	if err != nil {
		return n, fmt.Errorf("failed to filter %s: %w", path, err)
	}
	return n, nil
}
