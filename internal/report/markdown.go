package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeMatches(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("hathi Credential Audit Report")
	md.PlainText("")

	started := "-"
	if !report.StartedAt.IsZero() {
		started = report.StartedAt.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Scan Date", started},
			{"Duration", report.Elapsed.Round(time.Millisecond).String()},
			{"Reachable Services", strconv.Itoa(report.Reachable)},
			{"Accepted Credentials", strconv.Itoa(len(report.Matches))},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *Report) {
	md.H2("Summary")
	md.PlainText("")

	if len(report.Matches) == 0 {
		md.Tip("No credentials from the password list were accepted.")
		md.PlainText("")
		return
	}

	md.Cautionf("%d credential(s) were accepted. Rotate them and restrict network access to the affected services.",
		len(report.Matches))
	md.PlainText("")

	counts := countByType(report.Matches)
	rows := make([][]string, 0, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Accepted Credentials by Service"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		rows = append(rows, []string{c.Type.DisplayName(), strconv.Itoa(c.Count)})
		chart.LabelAndIntValue(c.Type.DisplayName(), uint64(c.Count)) //nolint:gosec // counts are positive
	}

	md.Table(markdown.TableSet{
		Header: []string{"Service", "Matches"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, report *Report) {
	if len(report.Matches) == 0 {
		return
	}

	md.H2("Accepted Credentials")
	md.PlainText("")

	rows := make([][]string, len(report.Matches))
	for i, m := range report.Matches {
		r := row(m)
		r[0] = "`" + r[0] + "`"
		rows[i] = r
	}
	md.Table(markdown.TableSet{
		Header: headers(),
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [hathi](https://github.com/nao1215/hathi)*")
}
