package netdial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 greeting performed by CheckProxy.
const checkProxyTimeout = 2 * time.Second

// SOCKS5 greeting constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// Dialer opens network connections honoring context cancellation.
// *net.Dialer satisfies it, as does the SOCKS5 dialer returned by NewSOCKS5.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Direct returns a dialer that connects without a proxy.
func Direct() Dialer {
	return &net.Dialer{}
}

// contextDialer adapts a proxy.Dialer without native context support.
type contextDialer struct {
	dialer proxy.Dialer
}

// DialContext dials through the wrapped dialer and abandons the dial when
// ctx is done. A connection that completes after cancellation is closed.
func (d contextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := d.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.conn != nil {
				_ = r.conn.Close() //nolint:errcheck // late connection is discarded
			}
		}()
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.conn, r.err
	}
}

// NewSOCKS5 returns a Dialer that routes every connection through the SOCKS5
// proxy at address ("host:port"). No authentication is offered.
//
// The proxy is not contacted here; call CheckProxy to verify it.
func NewSOCKS5(address string) (Dialer, error) {
	if !IsValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	d, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd, nil
	}
	return contextDialer{dialer: d}, nil
}

// IsValidProxyAddress checks that address is "host:port" with a non-empty
// host and a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy performs a SOCKS5 greeting against address and reports whether
// the proxy accepts unauthenticated clients. It returns nil on success.
func CheckProxy(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrProxyTimeout
		}
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	// version, one method, no-auth
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrProxyTimeout
		}
		return ErrProxyNotSOCKS5
	}

	if resp[0] != socks5Version {
		return ErrProxyNotSOCKS5
	}
	if resp[1] == socks5AuthNoAccept {
		return ErrProxyAuthRequired
	}
	if resp[1] != socks5AuthNone {
		return ErrProxyNotSOCKS5
	}
	return nil
}

// HostPort returns host joined with defaultPort unless host already carries
// an explicit port. IPv6 literals are bracketed as needed.
func HostPort(host string, defaultPort int) string {
	if h, p, err := net.SplitHostPort(host); err == nil && h != "" && p != "" {
		return host
	}
	// Bare IPv6 literals may arrive bracketed.
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return net.JoinHostPort(host, strconv.Itoa(defaultPort))
}

// SplitHost returns the host part and explicit port of target.
// port is 0 when target carries no port.
func SplitHost(target string) (host string, port int) {
	h, p, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return target, 0
	}
	return h, n
}
