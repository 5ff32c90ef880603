package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// DefaultProbeTimeout is the connect deadline for one probe.
const DefaultProbeTimeout = time.Second

// Prober checks reachability of database ports.
type Prober struct {
	dialer  netdial.Dialer
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDialer sets the dialer used for probes.
func WithDialer(d netdial.Dialer) Option {
	return func(p *Prober) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithTimeout sets the per-probe deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProber creates a Prober that dials directly with DefaultProbeTimeout.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		dialer:  netdial.Direct(),
		timeout: DefaultProbeTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discover probes every (host, type) pair and returns the reachable ones.
// A host carrying an explicit port is paired only with the types that port
// identifies (see typesFor). The order of the result is not specified.
// Cancelling ctx stops outstanding probes; pairs confirmed before that are
// still returned.
func (p *Prober) Discover(ctx context.Context, hosts []string, types []model.ServiceType) []model.ReachablePair {
	var (
		mu        sync.Mutex
		reachable []model.ReachablePair
	)

	// No SetLimit: concurrency is bounded by the number of pairs.
	var g errgroup.Group
	for _, host := range hosts {
		for _, st := range p.typesFor(host, types) {
			pair := model.ReachablePair{Host: host, Type: st}
			g.Go(func() error {
				if !p.Probe(ctx, pair) {
					return nil
				}
				mu.Lock()
				reachable = append(reachable, pair)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	return reachable
}

// typesFor returns the service types to probe on host. Without an explicit
// port every type is probed on its default port. An explicit port is probed
// as the types whose default port it is, or as the only selected type when
// it is no default port at all. Any other explicit port is skipped.
func (p *Prober) typesFor(host string, types []model.ServiceType) []model.ServiceType {
	_, port := netdial.SplitHost(host)
	if port == 0 {
		return types
	}

	var matched []model.ServiceType
	for _, st := range types {
		if st.DefaultPort() == port {
			matched = append(matched, st)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if len(types) == 1 {
		return types
	}

	p.logger.Warn("explicit port is not a default database port, select a service type to scan it",
		"host", host,
		"port", port)
	return nil
}

// Probe reports whether the pair's port accepts a TCP connection within the
// probe deadline. The connection is closed immediately.
func (p *Prober) Probe(ctx context.Context, pair model.ReachablePair) bool {
	address := netdial.HostPort(pair.Host, pair.Type.DefaultPort())

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(probeCtx, "tcp", address)
	if err != nil {
		p.logger.Debug("port unreachable",
			"host", pair.Host,
			"type", pair.Type.String(),
			"address", address,
			"error", err)
		return false
	}
	_ = conn.Close()

	p.logger.Debug("port open",
		"host", pair.Host,
		"type", pair.Type.String(),
		"address", address)
	return true
}
