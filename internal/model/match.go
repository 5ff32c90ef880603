package model

import "errors"

// ErrUnknownServiceType is returned when a service type name is not recognized.
var ErrUnknownServiceType = errors.New("unknown service type")

// Credential is a username/password pair under test.
type Credential struct {
	Username string
	Password string
}

// WithSuffix returns the credential with "@suffix" appended to the username.
// An empty suffix returns the credential unchanged.
func (c Credential) WithSuffix(suffix string) Credential {
	if suffix == "" {
		return c
	}
	c.Username = c.Username + "@" + suffix
	return c
}

// SuffixUsername appends the authentication-domain suffix to a username.
func SuffixUsername(username, suffix string) string {
	return Credential{Username: username}.WithSuffix(suffix).Username
}

// Match is a credential that the target accepted.
// A Match is created once from a successful Attempt and never modified.
type Match struct {
	// Host is the address the credential was accepted on.
	Host string `json:"host"`

	// Type is the service type of the host.
	Type ServiceType `json:"type"`

	// Database is the database name that was opened.
	Database string `json:"database"`

	// Username is the username as sent to the server (suffix included).
	Username string `json:"username"`

	// Password is the accepted password.
	Password string `json:"password"`

	// Data holds optional auxiliary information gathered after login.
	// It is nil unless something was gathered, and is not part of the JSON
	// output schema.
	Data map[string]string `json:"-"`
}

// NewMatch builds a Match from a successful attempt.
func NewMatch(attempt Attempt, database string, serviceType ServiceType) Match {
	return Match{
		Host:     attempt.Host,
		Type:     serviceType,
		Database: database,
		Username: attempt.Username,
		Password: attempt.Password,
	}
}

// ReachablePair is a (host, service type) combination confirmed open by
// host discovery.
type ReachablePair struct {
	Host string
	Type ServiceType
}

// String returns "host (type)".
func (p ReachablePair) String() string {
	return p.Host + " (" + p.Type.String() + ")"
}
