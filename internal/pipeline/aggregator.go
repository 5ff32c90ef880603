package pipeline

import (
	"sync"

	"github.com/nao1215/hathi/internal/model"
)

// Aggregator collects matches from concurrent sessions in emission order.
type Aggregator struct {
	mu       sync.Mutex
	matches  []model.Match
	callback func(model.Match)
}

// NewAggregator creates an Aggregator. callback, if non-nil, is called for
// every match as it is added; calls are serialized.
func NewAggregator(callback func(model.Match)) *Aggregator {
	return &Aggregator{callback: callback}
}

// Add records m.
func (a *Aggregator) Add(m model.Match) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.matches = append(a.matches, m)
	if a.callback != nil {
		a.callback(m)
	}
}

// Matches returns a copy of the collected matches.
func (a *Aggregator) Matches() []model.Match {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.Match, len(a.matches))
	copy(out, a.matches)
	return out
}
