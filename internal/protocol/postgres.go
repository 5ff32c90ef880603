package protocol

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// PostgreSQL SQLSTATE codes used for classification.
const (
	// pgInvalidPassword is raised for a password mismatch (28P01).
	pgInvalidPassword = "28P01"

	// pgInvalidAuthorization is raised when the role does not exist or no
	// pg_hba.conf entry allows it (28000).
	pgInvalidAuthorization = "28000"
)

// postgresUsernames is the built-in PostgreSQL username list.
var postgresUsernames = []string{
	"admin",
	"administrator",
	"postgres",
	"pga",
	"superuser",
	"dba",
	"web",
	"website",
	"django",
	"flask",
	"drupal",
	"wordpress",
	"postgresadmin",
}

// PostgresAdapter attempts PostgreSQL logins through lib/pq.
type PostgresAdapter struct {
	opts    Options
	connect connectFunc
}

// NewPostgresAdapter creates a PostgreSQL adapter.
// By default the connection requires TLS (sslmode=require); WithNoSSL
// switches to sslmode=disable.
func NewPostgresAdapter(opts ...Option) *PostgresAdapter {
	a := &PostgresAdapter{opts: newOptions(opts...)}
	a.connect = a.pqConnect
	return a
}

// Type returns model.ServiceTypePostgres.
func (a *PostgresAdapter) Type() model.ServiceType {
	return model.ServiceTypePostgres
}

// Kind returns KindAsync: lib/pq connectors honor the context.
func (a *PostgresAdapter) Kind() ConcurrencyKind {
	return KindAsync
}

// DefaultUsernames returns the built-in PostgreSQL username list.
func (a *PostgresAdapter) DefaultUsernames() []string {
	return copyUsernames(postgresUsernames)
}

// Attempt performs one PostgreSQL login.
func (a *PostgresAdapter) Attempt(ctx context.Context, host, username, password, database string) model.Attempt {
	address := netdial.HostPort(host, model.ServiceTypePostgres.DefaultPort())
	return attempt(ctx, a.opts.Timeout, a.connect, classifyPostgres, host, address, username, password, database)
}

// sslMode returns the sslmode parameter for the configured encryption mode.
func (a *PostgresAdapter) sslMode() string {
	if a.opts.NoSSL {
		return "disable"
	}
	return "require"
}

// dsn builds a postgres:// URL. Credentials are URL-escaped.
func (a *PostgresAdapter) dsn(address, username, password, database string) string {
	q := url.Values{}
	q.Set("sslmode", a.sslMode())
	q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(a.opts.Timeout)))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(username, password),
		Host:     address,
		Path:     "/" + database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// pqConnect opens and immediately closes one connection.
func (a *PostgresAdapter) pqConnect(ctx context.Context, address, username, password, database string) error {
	connector, err := pq.NewConnector(a.dsn(address, username, password, database))
	if err != nil {
		return err
	}
	if a.opts.Dialer != nil {
		connector.Dialer(pqDialer{dialer: a.opts.Dialer})
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// classifyPostgres maps lib/pq errors onto the outcome taxonomy.
func classifyPostgres(err error) model.Outcome {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return model.OutcomeError
	}

	switch string(pqErr.Code) {
	case pgInvalidPassword:
		return model.OutcomeBadPassword
	case pgInvalidAuthorization:
		return model.OutcomeBadUsername
	default:
		return model.OutcomeError
	}
}

// pqDialer adapts a netdial.Dialer to lib/pq's Dialer and DialerContext.
type pqDialer struct {
	dialer netdial.Dialer
}

// Dial implements pq.Dialer.
func (d pqDialer) Dial(network, address string) (net.Conn, error) {
	return d.dialer.DialContext(context.Background(), network, address)
}

// DialTimeout implements pq.Dialer.
func (d pqDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return d.dialer.DialContext(ctx, network, address)
}

// DialContext implements pq.DialerContext.
func (d pqDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.dialer.DialContext(ctx, network, address)
}

// timeoutSeconds rounds d up to whole seconds, minimum one.
func timeoutSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
