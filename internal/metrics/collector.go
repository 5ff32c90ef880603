package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/hathi/internal/model"
)

// Collector records scan counters in its own registry.
type Collector struct {
	registry  *prometheus.Registry
	attempts  *prometheus.CounterVec
	matches   *prometheus.CounterVec
	reachable *prometheus.CounterVec
	sessions  *prometheus.HistogramVec
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hathi_attempts_total",
				Help: "Login attempts acted on, by service type and outcome",
			},
			[]string{"type", "outcome"},
		),
		matches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hathi_matches_total",
				Help: "Accepted credentials, by service type",
			},
			[]string{"type"},
		),
		reachable: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hathi_reachable_pairs_total",
				Help: "Host and service pairs found open by discovery",
			},
			[]string{"type"},
		),
		sessions: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hathi_session_duration_seconds",
				Help:    "Duration of scan sessions",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"type"},
		),
	}
	c.registry.MustRegister(c.attempts, c.matches, c.reachable, c.sessions)

	// Every series starts at zero.
	for _, st := range model.AllServiceTypes() {
		for _, o := range model.AllOutcomes() {
			c.attempts.WithLabelValues(st.String(), o.String())
		}
		c.matches.WithLabelValues(st.String())
		c.reachable.WithLabelValues(st.String())
	}
	return c
}

// Attempted records one acted-on attempt.
func (c *Collector) Attempted(serviceType model.ServiceType, outcome model.Outcome) {
	c.attempts.WithLabelValues(serviceType.String(), outcome.String()).Inc()
}

// Matched records one accepted credential.
func (c *Collector) Matched(m model.Match) {
	c.matches.WithLabelValues(m.Type.String()).Inc()
}

// Reachable records one open pair.
func (c *Collector) Reachable(pair model.ReachablePair) {
	c.reachable.WithLabelValues(pair.Type.String()).Inc()
}

// SessionFinished records how long a session ran.
func (c *Collector) SessionFinished(serviceType model.ServiceType, elapsed time.Duration) {
	c.sessions.WithLabelValues(serviceType.String()).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("serving metrics", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
