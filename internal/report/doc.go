// Package report formats audit results for output.
//
// The CSV writer is the primary sink: one row per non-healthy link, with
// the header consumed by downstream spreadsheet tooling. JSON and Markdown
// writers cover tool integration and human review respectively.
package report
