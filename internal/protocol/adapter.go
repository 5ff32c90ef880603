package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// DefaultAttemptTimeout is the deadline for a single login attempt.
// It leaves room for TLS negotiation and server-side authentication round
// trips.
const DefaultAttemptTimeout = 5 * time.Second

// ConcurrencyKind describes how an adapter's native connect call behaves.
type ConcurrencyKind int

const (
	// KindBlocking adapters wrap a connect call that may not return promptly
	// on cancellation. The orchestrator runs each attempt detached so that a
	// stuck call never holds a worker slot after its batch is cancelled.
	KindBlocking ConcurrencyKind = iota

	// KindAsync adapters honor context cancellation natively and are called
	// directly on the worker goroutine.
	KindAsync
)

// String returns the name of the concurrency kind.
func (k ConcurrencyKind) String() string {
	switch k {
	case KindBlocking:
		return "blocking"
	case KindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Adapter attempts logins against one database protocol.
type Adapter interface {
	// Attempt opens one authenticated connection to host as
	// username/password, targeting database, closes it, and returns the
	// classified result. It never panics and never returns an outcome
	// outside the model.Outcome set.
	Attempt(ctx context.Context, host, username, password, database string) model.Attempt

	// Type returns the service type this adapter speaks.
	Type() model.ServiceType

	// Kind reports whether the native connect call is blocking or
	// context-aware.
	Kind() ConcurrencyKind

	// DefaultUsernames returns the built-in username list used when the
	// caller supplies none. The returned slice is a copy.
	DefaultUsernames() []string
}

// Options configure an adapter.
type Options struct {
	// Timeout is the per-attempt deadline.
	Timeout time.Duration

	// NoSSL disables transport encryption instead of requiring it.
	// It never changes how outcomes are classified.
	NoSSL bool

	// Dialer, when set, opens the transport connection (e.g. through a
	// SOCKS5 proxy). Nil means the driver's own direct dialer.
	Dialer netdial.Dialer
}

// Option configures Options.
type Option func(*Options)

// WithTimeout sets the per-attempt deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithNoSSL switches TLS-capable adapters from "require encryption" to
// "disable encryption".
func WithNoSSL(noSSL bool) Option {
	return func(o *Options) {
		o.NoSSL = noSSL
	}
}

// WithDialer routes adapter connections through d.
func WithDialer(d netdial.Dialer) Option {
	return func(o *Options) {
		o.Dialer = d
	}
}

// newOptions applies opts over the defaults.
func newOptions(opts ...Option) Options {
	o := Options{Timeout: DefaultAttemptTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// connectFunc performs one native login and returns the native error.
type connectFunc func(ctx context.Context, address, username, password, database string) error

// classifyFunc maps a non-nil native error to an outcome.
type classifyFunc func(err error) model.Outcome

// errPanic wraps a value recovered from a panicking connect call.
var errPanic = errors.New("adapter panic")

// attempt runs connect under the per-attempt deadline and classifies the
// result. Panics are recovered and reported as OutcomeError.
func attempt(
	ctx context.Context,
	timeout time.Duration,
	connect connectFunc,
	classify classifyFunc,
	host, address, username, password, database string,
) (result model.Attempt) {
	result = model.Attempt{
		Host:     host,
		Username: username,
		Password: password,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = model.OutcomeError
			result.Err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := connect(ctx, address, username, password, database)
	if err == nil {
		result.Outcome = model.OutcomeSuccess
		return result
	}

	result.Err = err
	if isTimeout(ctx, err) {
		result.Outcome = model.OutcomeTimeout
		return result
	}
	result.Outcome = classify(err)
	return result
}

// isTimeout reports whether err is a deadline expiry rather than an
// authentication failure or a cancellation.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// copyUsernames returns a copy of a built-in username list.
func copyUsernames(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}
