// Package netdial provides the network dialers used by host discovery and
// the protocol adapters.
//
// Connections are either made directly or routed through a SOCKS5 proxy
// (for example an SSH dynamic forward or a pivot host). Both cases are
// exposed through the same context-aware Dialer interface so callers never
// need to know which one is in use.
//
// # Usage
//
//	d, err := netdial.NewSOCKS5("127.0.0.1:1080")
//	if err != nil {
//	    return err
//	}
//	conn, err := d.DialContext(ctx, "tcp", netdial.HostPort("10.0.0.5", 5432))
package netdial
