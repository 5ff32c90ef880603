package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/hathi/internal/config"
	"github.com/nao1215/hathi/internal/database"
	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List credentials recorded by previous scans",
		Long: `History lists the credentials saved by "hathi scan --save", most recently
seen first. The history is read-only here and never influences a scan.

Examples:
  hathi history
  hathi history --limit 20 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory holding the history database")
	cmd.Flags().IntP("limit", "n", 0, "Show at most this many entries (0 = all)")
	cmd.Flags().BoolP("json", "j", false, "Output entries as a JSON array")
	cmd.Flags().Bool("runs", false, "List recorded runs instead of credentials")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	runs, err := cmd.Flags().GetBool("runs")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if runs {
		list, err := db.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, r := range list {
			finished := "running"
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintf(out, "%s  %s  hosts=%d reachable=%d matches=%d  %s\n",
				r.StartedAt.Local().Format(time.DateTime), r.ID, r.Hosts, r.Reachable, r.Matches, finished)
		}
		return nil
	}

	records, err := db.ListMatches(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON {
		matches := make([]model.Match, len(records))
		for i, rec := range records {
			matches[i] = rec.Match
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).Write(&report.Report{Matches: matches})
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No credentials recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s  %-8s %s  %s / %s  (db %s, seen %d time(s))\n",
			rec.LastSeen.Local().Format(time.DateTime), rec.Type, rec.Host,
			rec.Username, rec.Password, rec.Database, rec.SeenCount)
	}
	return nil
}
