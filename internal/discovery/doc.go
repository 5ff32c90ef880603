// Package discovery finds which (host, service type) pairs accept TCP
// connections on their database port.
//
// Every pair is probed concurrently with a bare TCP connect under a short
// deadline. Pairs that do not answer are dropped; a probe failure is never
// an error for the caller.
//
// A target written as host:port names one listener. It is paired with the
// service type whose default port matches, or with the single selected type.
package discovery
