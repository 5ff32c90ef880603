package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// TableWriter outputs a human-readable table of matches followed by a
// completion line.
type TableWriter struct {
	baseWriter
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the table. With no matches only the completion line is
// written.
func (w *TableWriter) Write(report *Report) (int, error) {
	var buf bytes.Buffer

	if len(report.Matches) > 0 {
		table := tablewriter.NewWriter(&buf)
		labels := headers()
		cells := make([]any, len(labels))
		for i, l := range labels {
			cells[i] = l
		}
		table.Header(cells...)
		for _, m := range report.Matches {
			if err := table.Append(row(m)); err != nil {
				return 0, fmt.Errorf("failed to add table row: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return 0, fmt.Errorf("failed to render table: %w", err)
		}
	}

	fmt.Fprintf(&buf, "Scan completed in %s: %d match(es) on %d reachable service(s)\n",
		report.Elapsed.Round(time.Millisecond), len(report.Matches), report.Reachable)

	return w.output.Write(buf.Bytes())
}
