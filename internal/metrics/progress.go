package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// TextSink serializes progress lines from concurrent sessions onto one writer.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink creates a sink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Progress returns a new progress tracker for one session.
func (s *TextSink) Progress() *TextProgress {
	return &TextProgress{sink: s}
}

func (s *TextSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, format, args...)
}

// TextProgress prints a line when a phase starts, at each quarter, and when
// it ends. It is used by one session at a time.
type TextProgress struct {
	sink    *TextSink
	label   string
	total   int
	done    int
	quarter int
	started time.Time
}

// Start implements scanner.Progress.
func (p *TextProgress) Start(label string, total int) {
	p.label = label
	p.total = total
	p.done = 0
	p.quarter = 0
	p.started = time.Now()
	p.sink.printf("%s: 0/%d\n", label, total)
}

// Advance implements scanner.Progress.
func (p *TextProgress) Advance(n int) {
	p.done += n
	if p.total <= 0 {
		return
	}
	q := p.done * 4 / p.total
	if q > p.quarter && q < 4 {
		p.quarter = q
		p.sink.printf("%s: %d/%d\n", p.label, p.done, p.total)
	}
}

// Done implements scanner.Progress.
func (p *TextProgress) Done() {
	p.sink.printf("%s: %d/%d in %s\n", p.label, p.done, p.total, time.Since(p.started).Round(time.Millisecond))
}
