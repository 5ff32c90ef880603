package report

import (
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/hathi/internal/model"
)

// Report is the outcome of one scan as handed to a Writer.
type Report struct {
	// Matches holds every accepted credential in emission order.
	Matches []model.Match

	// Reachable is the number of (host, type) pairs discovery found open.
	Reachable int

	// StartedAt is when the scan began.
	StartedAt time.Time

	// Elapsed is the wall-clock duration of the scan.
	Elapsed time.Duration
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *Report) (int, error)
}

// MultiWriter writes to multiple Writers in order and stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// columns are the match fields in output order. They match the JSON keys.
var columns = []string{"host", "type", "database", "username", "password"}

// headers returns the column labels for human-readable formats.
func headers() []string {
	title := cases.Title(language.English)
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = title.String(c)
	}
	return out
}

// row flattens a match in column order.
func row(m model.Match) []string {
	return []string{m.Host, m.Type.String(), m.Database, m.Username, m.Password}
}

// countByType returns match counts per service type in the stable type order,
// skipping types without matches.
func countByType(matches []model.Match) []typeCount {
	counts := make(map[model.ServiceType]int)
	for _, m := range matches {
		counts[m.Type]++
	}
	var out []typeCount
	for _, t := range model.AllServiceTypes() {
		if counts[t] > 0 {
			out = append(out, typeCount{Type: t, Count: counts[t]})
		}
	}
	return out
}

type typeCount struct {
	Type  model.ServiceType
	Count int
}
