// Package database provides the SQLite-backed scan history used by
// `hathi scan --save` and `hathi history`.
//
// The history is an archive. It records runs and the credentials they found,
// deduplicated by a SHA3-256 fingerprint, and is never read back to steer a
// scan.
package database
