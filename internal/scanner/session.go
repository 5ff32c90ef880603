package scanner

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/protocol"
	"github.com/nao1215/hathi/internal/wordlist"
)

// DefaultWorkers is the number of attempts in flight per username batch.
const DefaultWorkers = 10

// Session scans one (host, service type) pair.
type Session struct {
	adapter      protocol.Adapter
	host         string
	passwordFile string

	database  string
	usernames []string
	suffix    string
	multiple  bool
	verbose   bool
	workers   int
	limiter   *rate.Limiter
	progress  Progress
	observer  Observer
	logger    *slog.Logger

	started atomic.Bool

	mu  sync.Mutex
	err error
}

// Option configures a Session.
type Option func(*Session)

// WithUsernames sets the usernames to try, in order. An empty list keeps the
// adapter's built-in defaults.
func WithUsernames(usernames []string) Option {
	return func(s *Session) {
		if len(usernames) > 0 {
			s.usernames = append([]string(nil), usernames...)
		}
	}
}

// WithSuffix appends "@suffix" to every username.
func WithSuffix(suffix string) Option {
	return func(s *Session) {
		s.suffix = suffix
	}
}

// WithDatabase overrides the database name. Empty keeps the service default.
func WithDatabase(database string) Option {
	return func(s *Session) {
		if database != "" {
			s.database = database
		}
	}
}

// WithMultiple keeps searching other usernames after a match.
func WithMultiple(multiple bool) Option {
	return func(s *Session) {
		s.multiple = multiple
	}
}

// WithVerbose logs every username and attempt at info level.
func WithVerbose(verbose bool) Option {
	return func(s *Session) {
		s.verbose = verbose
	}
}

// WithWorkers sets the per-batch worker ceiling. Non-positive values are ignored.
func WithWorkers(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRate limits attempts to perSecond. Zero or less means unlimited.
func WithRate(perSecond float64) Option {
	return func(s *Session) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(s *Session) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithObserver sets the attempt observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session against host using adapter. Passwords are
// read from passwordFile once per username.
func NewSession(adapter protocol.Adapter, host, passwordFile string, opts ...Option) *Session {
	s := &Session{
		adapter:      adapter,
		host:         host,
		passwordFile: passwordFile,
		database:     adapter.Type().DefaultDatabase(),
		workers:      DefaultWorkers,
		progress:     NopProgress{},
		observer:     nopObserver{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("host", host, "type", adapter.Type().String())
	return s
}

// Host returns the target host.
func (s *Session) Host() string {
	return s.host
}

// Type returns the service type being scanned.
func (s *Session) Type() model.ServiceType {
	return s.adapter.Type()
}

// Err reports why the session stopped early: ErrTimeout, ErrAttemptFailed,
// ErrPasswordList, or nil. It is meant for diagnostics only.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Matches returns the lazy sequence of accepted credentials. Ranging over it
// runs the scan; breaking out cancels outstanding attempts. The sequence can
// be consumed only once; later calls yield nothing.
func (s *Session) Matches(ctx context.Context) iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		usernames := s.usernames
		if len(usernames) == 0 {
			usernames = s.adapter.DefaultUsernames()
		}

		for _, name := range usernames {
			if ctx.Err() != nil {
				return
			}

			username := model.SuffixUsername(name, s.suffix)
			passwords, err := wordlist.ReadFile(s.passwordFile)
			if err != nil {
				s.setErr(fmt.Errorf("%w: %w", ErrPasswordList, err))
				s.logger.Error("failed to read password list", "error", err)
				return
			}

			if s.verbose {
				s.logger.Info("trying username", "username", username, "candidates", len(passwords))
			}

			if !s.runBatch(ctx, username, passwords, yield) {
				return
			}
		}
	}
}

// result is one attempt as delivered to the session loop.
type result struct {
	attempt  model.Attempt
	action   Action
	decisive bool
}

// runBatch tries every password for username and reports whether the
// session should continue with the next username.
func (s *Session) runBatch(ctx context.Context, username string, passwords []string, yield func(model.Match) bool) bool {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.progress.Start(fmt.Sprintf("%s %s %s", s.host, s.adapter.Type(), username), len(passwords))
	defer s.progress.Done()

	// Only the first non-continue outcome of a batch is acted on. The
	// worker that claims it cancels the batch before releasing its slot so
	// no further attempt starts after a stop decision.
	var decided atomic.Bool
	results := make(chan result)

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(s.workers)
		for _, password := range passwords {
			if batchCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				if batchCtx.Err() != nil {
					return nil
				}
				if s.limiter != nil {
					if err := s.limiter.Wait(batchCtx); err != nil {
						return nil
					}
				}

				attempt, ok := s.try(batchCtx, username, password)
				if !ok {
					return nil
				}

				r := result{attempt: attempt, action: Policy(attempt.Outcome, s.multiple)}
				if r.action != ActionContinue {
					if !decided.CompareAndSwap(false, true) {
						return nil
					}
					r.decisive = true
					cancel()
				} else if batchCtx.Err() != nil {
					return nil
				}

				results <- r
				return nil
			})
		}
		_ = g.Wait()
	}()

	// Drain until every worker has returned.
	defer func() {
		cancel()
		for range results {
		}
	}()

	for r := range results {
		if !r.decisive && batchCtx.Err() != nil {
			continue
		}

		s.observer.Attempted(s.adapter.Type(), r.attempt.Outcome)
		s.progress.Advance(1)
		s.logAttempt(r.attempt)

		if r.attempt.Outcome == model.OutcomeSuccess {
			match := model.NewMatch(r.attempt, s.database, s.adapter.Type())
			s.logger.Info("credentials accepted", "username", match.Username, "database", match.Database)
			if !yield(match) {
				return false
			}
		}

		switch r.action {
		case ActionContinue:
			continue
		case ActionNextUsername:
			return true
		default:
			s.recordStop(r.attempt)
			return false
		}
	}

	return true
}

// try runs one attempt. It returns false when the batch was cancelled before
// the attempt finished, in which case the result must be discarded.
func (s *Session) try(ctx context.Context, username, password string) (model.Attempt, bool) {
	if s.adapter.Kind() == protocol.KindAsync {
		attempt := s.call(ctx, username, password)
		return attempt, ctx.Err() == nil
	}

	// Blocking adapters run detached so a stuck connect never holds the
	// worker slot past cancellation.
	done := make(chan model.Attempt, 1)
	go func() {
		done <- s.call(ctx, username, password)
	}()

	select {
	case attempt := <-done:
		return attempt, ctx.Err() == nil
	case <-ctx.Done():
		return model.Attempt{}, false
	}
}

// call invokes the adapter, turning a panic into OutcomeError.
func (s *Session) call(ctx context.Context, username, password string) (attempt model.Attempt) {
	defer func() {
		if r := recover(); r != nil {
			attempt = model.Attempt{
				Outcome:  model.OutcomeError,
				Host:     s.host,
				Username: username,
				Password: password,
				Err:      fmt.Errorf("adapter panic: %v", r),
			}
		}
	}()
	return s.adapter.Attempt(ctx, s.host, username, password, s.database)
}

// recordStop records why the session ends after a stop outcome.
func (s *Session) recordStop(attempt model.Attempt) {
	switch attempt.Outcome {
	case model.OutcomeSuccess:
		return
	case model.OutcomeTimeout:
		s.setErr(fmt.Errorf("%w: %s as %s", ErrTimeout, s.host, attempt.Username))
		s.logger.Warn("attempt timed out, abandoning host", "username", attempt.Username)
	default:
		if attempt.Err != nil {
			s.setErr(fmt.Errorf("%w: %w", ErrAttemptFailed, attempt.Err))
		} else {
			s.setErr(fmt.Errorf("%w: %s as %s", ErrAttemptFailed, s.host, attempt.Username))
		}
		s.logger.Warn("attempt failed, abandoning host", "username", attempt.Username, "error", attempt.Err)
	}
}

func (s *Session) logAttempt(attempt model.Attempt) {
	if !s.verbose {
		s.logger.Debug("attempt", "username", attempt.Username, "outcome", attempt.Outcome.String())
		return
	}
	s.logger.Info("attempt", "username", attempt.Username, "outcome", attempt.Outcome.String())
}
