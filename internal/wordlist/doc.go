// Package wordlist reads username and password candidate lists.
//
// A list is a text file with one candidate per line. Surrounding whitespace
// is trimmed and blank lines are skipped. The package also provides the
// password complexity filter used by the filter command.
package wordlist
