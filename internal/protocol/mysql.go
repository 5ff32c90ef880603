package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// mysqlAccessDenied is ER_ACCESS_DENIED_ERROR (1045).
const mysqlAccessDenied = 1045

// mysqlUsernames is the built-in MySQL username list.
var mysqlUsernames = []string{
	"admin",
	"administrator",
	"mysql",
	"superuser",
	"dba",
	"web",
	"website",
	"django",
	"flask",
	"drupal",
	"wordpress",
}

// mysqlDialSeq numbers the custom networks registered with the driver.
var mysqlDialSeq atomic.Int64

// MySQLAdapter attempts MySQL/MariaDB logins through go-sql-driver/mysql.
type MySQLAdapter struct {
	opts    Options
	network string
	connect connectFunc
}

// NewMySQLAdapter creates a MySQL adapter.
// By default TLS is required without certificate verification; WithNoSSL
// disables TLS.
//
// When a dialer is configured it is registered with the driver under a
// network name private to this adapter.
func NewMySQLAdapter(opts ...Option) *MySQLAdapter {
	a := &MySQLAdapter{opts: newOptions(opts...), network: "tcp"}
	if a.opts.Dialer != nil {
		a.network = fmt.Sprintf("hathi-dial-%d", mysqlDialSeq.Add(1))
		dialer := a.opts.Dialer
		mysql.RegisterDialContext(a.network, func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", addr)
		})
	}
	a.connect = a.mysqlConnect
	return a
}

// Type returns model.ServiceTypeMySQL.
func (a *MySQLAdapter) Type() model.ServiceType {
	return model.ServiceTypeMySQL
}

// Kind returns KindBlocking.
func (a *MySQLAdapter) Kind() ConcurrencyKind {
	return KindBlocking
}

// DefaultUsernames returns the built-in MySQL username list.
func (a *MySQLAdapter) DefaultUsernames() []string {
	return copyUsernames(mysqlUsernames)
}

// Attempt performs one MySQL login.
func (a *MySQLAdapter) Attempt(ctx context.Context, host, username, password, database string) model.Attempt {
	address := netdial.HostPort(host, model.ServiceTypeMySQL.DefaultPort())
	return attempt(ctx, a.opts.Timeout, a.connect, classifyMySQL, host, address, username, password, database)
}

// config builds the driver configuration for one attempt.
func (a *MySQLAdapter) config(address, username, password, database string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = username
	cfg.Passwd = password
	cfg.Net = a.network
	cfg.Addr = address
	cfg.DBName = database
	cfg.Timeout = a.opts.Timeout
	cfg.ReadTimeout = a.opts.Timeout
	cfg.WriteTimeout = a.opts.Timeout
	if a.opts.NoSSL {
		cfg.TLSConfig = "false"
	} else {
		cfg.TLSConfig = "skip-verify"
	}
	return cfg
}

// mysqlConnect opens and immediately closes one connection.
func (a *MySQLAdapter) mysqlConnect(ctx context.Context, address, username, password, database string) error {
	connector, err := mysql.NewConnector(a.config(address, username, password, database))
	if err != nil {
		return err
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// classifyMySQL maps go-sql-driver errors onto the outcome taxonomy.
// Only ER_ACCESS_DENIED_ERROR is provably a credential mismatch.
func classifyMySQL(err error) model.Outcome {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlAccessDenied {
		return model.OutcomeBadPassword
	}
	return model.OutcomeError
}
