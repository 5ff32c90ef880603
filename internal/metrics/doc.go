// Package metrics provides the observational sinks of a scan: Prometheus
// counters exposed over HTTP and a plain-text progress writer for verbose
// terminal runs. Neither influences scanning.
package metrics
