// Package target expands host arguments into individual scan targets.
//
// Accepted forms:
//
//	10.0.0.5               single address or hostname, optionally host:port
//	10.0.0.0/29            IPv4 CIDR block (network and broadcast excluded)
//	10.0.0.1-20            last-octet range
//	10.0.0.1-10.0.0.9      full IPv4 range
//	10.0.0.1,db.internal   comma separated list of any of the above
package target
