// Package input reduces device-name sources to an ordered list of names.
//
// Sources are a literal list, a line-delimited text file, or a CSV file with
// a header row and a named column. Validation failures are returned as
// domain.ErrConfiguration before any remote call is made.
package input
