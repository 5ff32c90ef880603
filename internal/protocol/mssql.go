package protocol

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/nao1215/hathi/internal/model"
	"github.com/nao1215/hathi/internal/netdial"
)

// mssqlLoginFailed is SQL Server error 18456 ("Login failed for user").
// The server returns it for unknown logins and wrong passwords alike.
const mssqlLoginFailed = 18456

// mssqlUsernames is the built-in SQL Server username list.
var mssqlUsernames = []string{
	"admin",
	"administrator",
	"superuser",
	"dba",
	"web",
	"website",
	"django",
	"flask",
	"drupal",
	"wordpress",
}

// MSSQLAdapter attempts SQL Server logins through go-mssqldb.
type MSSQLAdapter struct {
	opts    Options
	connect connectFunc
}

// NewMSSQLAdapter creates a SQL Server adapter.
// By default the connection is encrypted (encrypt=true, server certificate
// not verified); WithNoSSL switches to encrypt=disable.
func NewMSSQLAdapter(opts ...Option) *MSSQLAdapter {
	a := &MSSQLAdapter{opts: newOptions(opts...)}
	a.connect = a.tdsConnect
	return a
}

// Type returns model.ServiceTypeMSSQL.
func (a *MSSQLAdapter) Type() model.ServiceType {
	return model.ServiceTypeMSSQL
}

// Kind returns KindBlocking.
func (a *MSSQLAdapter) Kind() ConcurrencyKind {
	return KindBlocking
}

// DefaultUsernames returns the built-in SQL Server username list.
func (a *MSSQLAdapter) DefaultUsernames() []string {
	return copyUsernames(mssqlUsernames)
}

// Attempt performs one SQL Server login.
func (a *MSSQLAdapter) Attempt(ctx context.Context, host, username, password, database string) model.Attempt {
	address := netdial.HostPort(host, model.ServiceTypeMSSQL.DefaultPort())
	return attempt(ctx, a.opts.Timeout, a.connect, classifyMSSQL, host, address, username, password, database)
}

// dsn builds a sqlserver:// URL.
func (a *MSSQLAdapter) dsn(address, username, password, database string) string {
	encrypt := "true"
	if a.opts.NoSSL {
		encrypt = "disable"
	}

	secs := strconv.Itoa(timeoutSeconds(a.opts.Timeout))
	q := url.Values{}
	q.Set("database", database)
	q.Set("encrypt", encrypt)
	q.Set("TrustServerCertificate", "true")
	q.Set("connection timeout", secs)
	q.Set("dial timeout", secs)

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(username, password),
		Host:     address,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// tdsConnect opens and immediately closes one connection.
func (a *MSSQLAdapter) tdsConnect(ctx context.Context, address, username, password, database string) error {
	connector, err := mssql.NewConnector(a.dsn(address, username, password, database))
	if err != nil {
		return err
	}
	if a.opts.Dialer != nil {
		connector.Dialer = a.opts.Dialer
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// classifyMSSQL maps go-mssqldb errors onto the outcome taxonomy.
// SQL Server reports unknown logins and wrong passwords with the same error,
// so a login failure is treated as a password mismatch for a username that
// may exist.
func classifyMSSQL(err error) model.Outcome {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		if msErr.Number == mssqlLoginFailed {
			return model.OutcomeBadPassword
		}
		return model.OutcomeError
	}

	// Some driver versions only surface the login failure as text.
	if strings.Contains(err.Error(), "Login failed for user") {
		return model.OutcomeBadPassword
	}
	return model.OutcomeError
}
