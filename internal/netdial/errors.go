package netdial

import "errors"

// Proxy errors.
// These are returned when the configured SOCKS5 proxy is unusable.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyNotSOCKS5 is returned when the proxy accepts TCP connections
	// but does not answer the SOCKS5 greeting.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection can be made to
	// the proxy.
	ErrProxyCannotConnect = errors.New("cannot connect to SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to SOCKS5 proxy")

	// ErrProxyAuthRequired is returned when the proxy refuses the
	// no-authentication method.
	ErrProxyAuthRequired = errors.New("SOCKS5 proxy requires authentication")
)
