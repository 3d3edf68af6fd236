// Package format provides raw_text rules about source layout.
//
// Rules in this package:
//   - format.line_length: lines wider than 100 display columns
//   - format.ascii_only: non-ASCII characters
//   - format.no_tabs: tab characters
//   - format.no_trailing_whitespace: spaces or tabs before a line break
//   - format.final_newline: text that does not end with a newline
//
// The last four share a single scan of the request text.
package format
