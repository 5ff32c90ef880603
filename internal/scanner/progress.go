package scanner

import "github.com/nao1215/hathi/internal/model"

// Progress receives advancement ticks. It is purely observational.
type Progress interface {
	// Start begins a new phase with a label and the number of expected ticks.
	Start(label string, total int)

	// Advance records n completed units.
	Advance(n int)

	// Done ends the current phase.
	Done()
}

// Observer is told about every attempt outcome a session acts on.
type Observer interface {
	Attempted(serviceType model.ServiceType, outcome model.Outcome)
}

// NopProgress discards all progress.
type NopProgress struct{}

// Start implements Progress.
func (NopProgress) Start(string, int) {}

// Advance implements Progress.
func (NopProgress) Advance(int) {}

// Done implements Progress.
func (NopProgress) Done() {}

type nopObserver struct{}

func (nopObserver) Attempted(model.ServiceType, model.Outcome) {}
