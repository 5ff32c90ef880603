// Package report renders scan results.
//
// Writers implement the Writer interface:
//   - JSONWriter: the match array for tool integration
//   - TableWriter: a terminal table with a completion line
//   - MarkdownWriter: a shareable Markdown document
package report
