// Package pipeline runs a full scan: discovery of open database ports, one
// scan session per reachable (host, service type) pair, and aggregation of
// every match.
//
// Sessions for different pairs share nothing and run concurrently up to the
// configured batch size using errgroup. A session that stops on a timeout or
// an unclassified failure only ends the search for its own pair; the run
// always continues with the others.
package pipeline
