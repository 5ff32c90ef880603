// Package main provides the entry point for the hathi CLI.
//
// hathi audits PostgreSQL, Microsoft SQL Server and MySQL servers for
// credentials from a password list.
//
// Usage:
//
//	hathi scan -P passwords.txt 10.0.0.0/24
//	hathi filter wordlist.txt
//
// See --help for all available options.
package main

func main() {
	Execute()
}
