// Package model defines the data structures shared by hathi's packages.
//
// This package contains the following main types:
//   - ServiceType: the audited database protocols and their constant
//     default ports and database names
//   - Outcome and Attempt: the closed classification of a login attempt
//   - Credential and Match: the credential under test and an accepted one
//   - ReachablePair: a (host, service type) confirmed open by discovery
//
// Models live in their own package so that protocol, scanner, pipeline and
// report can share them without import cycles. Match is serializable to the
// JSON output schema and to the history database.
package model
