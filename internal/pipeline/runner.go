package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/protocol"
	"github.com/nao1215/hathi/internal/scanner"
)

// DefaultConcurrency is the number of sessions run at once.
const DefaultConcurrency = 10

// Discoverer finds reachable (host, service type) pairs.
type Discoverer interface {
	Discover(ctx context.Context, hosts []string, types []model.ServiceType) []model.ReachablePair
}

// AdapterSource resolves the adapter for a service type.
type AdapterSource interface {
	Lookup(t model.ServiceType) (protocol.Adapter, bool)
}

// Recorder receives run telemetry.
type Recorder interface {
	scanner.Observer
	Reachable(pair model.ReachablePair)
	Matched(m model.Match)
	SessionFinished(serviceType model.ServiceType, elapsed time.Duration)
}

// Result summarizes one run.
type Result struct {
	// Matches holds every accepted credential in emission order.
	Matches []model.Match

	// Reachable lists the pairs discovery found open.
	Reachable []model.ReachablePair

	// Stopped maps a pair to the reason its session ended early.
	Stopped map[model.ReachablePair]error

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Runner wires discovery, sessions and aggregation together.
type Runner struct {
	discoverer   Discoverer
	adapters     AdapterSource
	passwordFile string

	concurrency    int
	logger         *slog.Logger
	recorder       Recorder
	sessionOpts    []scanner.Option
	pairOpts       func(pair model.ReachablePair) []scanner.Option
	progressSource func() scanner.Progress
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the maximum number of concurrent sessions.
// Default is 10 if not specified.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the run logger. It is also passed to every session.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithSessionOptions sets options applied to every session.
func WithSessionOptions(opts ...scanner.Option) Option {
	return func(r *Runner) {
		r.sessionOpts = append(r.sessionOpts, opts...)
	}
}

// WithPairOptions sets a function returning extra session options for a
// pair. They are applied after WithSessionOptions.
func WithPairOptions(fn func(pair model.ReachablePair) []scanner.Option) Option {
	return func(r *Runner) {
		r.pairOpts = fn
	}
}

// WithProgress sets a function creating one progress sink per session.
func WithProgress(fn func() scanner.Progress) Option {
	return func(r *Runner) {
		r.progressSource = fn
	}
}

// NewRunner creates a Runner reading passwords from passwordFile.
func NewRunner(discoverer Discoverer, adapters AdapterSource, passwordFile string, opts ...Option) *Runner {
	r := &Runner{
		discoverer:   discoverer,
		adapters:     adapters,
		passwordFile: passwordFile,
		concurrency:  DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run discovers open pairs among hosts and types and scans each of them.
// onMatch, if non-nil, is called for every match as soon as it is found.
// The only error returned is the context's, when the run was cancelled;
// matches found until then are still in the result.
func (r *Runner) Run(
	ctx context.Context,
	hosts []string,
	types []model.ServiceType,
	onMatch func(model.Match),
) (*Result, error) {
	start := time.Now()

	r.logger.Info("starting discovery",
		"hosts", len(hosts),
		"types", len(types),
	)

	reachable := r.discoverer.Discover(ctx, hosts, types)
	for _, pair := range reachable {
		if r.recorder != nil {
			r.recorder.Reachable(pair)
		}
	}

	r.logger.Info("discovery complete",
		"reachable", len(reachable),
		"elapsed", time.Since(start),
	)

	agg := NewAggregator(onMatch)
	var (
		mu      sync.Mutex
		stopped = make(map[model.ReachablePair]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, pair := range reachable {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if err := r.scanPair(gctx, pair, agg); err != nil {
				mu.Lock()
				stopped[pair] = err
				mu.Unlock()
			}
			// A stopped session never aborts the run.
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	result := &Result{
		Matches:   agg.Matches(),
		Reachable: reachable,
		Stopped:   stopped,
		Elapsed:   time.Since(start),
	}

	r.logger.Info("scan complete",
		"matches", len(result.Matches),
		"sessions", len(reachable),
		"stopped", len(stopped),
		"elapsed", result.Elapsed,
	)

	return result, err
}

// scanPair runs one session and returns why it stopped early, if it did.
func (r *Runner) scanPair(ctx context.Context, pair model.ReachablePair, agg *Aggregator) error {
	adapter, ok := r.adapters.Lookup(pair.Type)
	if !ok {
		r.logger.Warn("no adapter for service type", "host", pair.Host, "type", pair.Type.String())
		return nil
	}

	opts := make([]scanner.Option, 0, len(r.sessionOpts)+4)
	opts = append(opts, r.sessionOpts...)
	opts = append(opts, scanner.WithLogger(r.logger))
	if r.pairOpts != nil {
		opts = append(opts, r.pairOpts(pair)...)
	}
	if r.recorder != nil {
		opts = append(opts, scanner.WithObserver(r.recorder))
	}
	if r.progressSource != nil {
		opts = append(opts, scanner.WithProgress(r.progressSource()))
	}

	session := scanner.NewSession(adapter, pair.Host, r.passwordFile, opts...)

	r.logger.Info("scanning", "host", pair.Host, "type", pair.Type.String())
	started := time.Now()

	for m := range session.Matches(ctx) {
		if r.recorder != nil {
			r.recorder.Matched(m)
		}
		agg.Add(m)
	}

	if r.recorder != nil {
		r.recorder.SessionFinished(pair.Type, time.Since(started))
	}

	if err := session.Err(); err != nil {
		r.logger.Warn("session stopped", "host", pair.Host, "type", pair.Type.String(), "error", err)
		return err
	}
	return nil
}
