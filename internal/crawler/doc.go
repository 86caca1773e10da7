// Package crawler discovers a site's internal link graph.
//
// # Architecture
//
// The Spider expands a breadth-first frontier of (url, depth) pairs from a
// seed page, fetching each page once and handing its HTML to the Parser,
// which extracts anchor elements with their text. The output is the flat
// list of discovered links that the resolver package consumes.
//
// Design decision: We implement our own crawler rather than using a
// third-party library because:
//  1. We need the (source page, anchor text, target) triple for the report,
//     not just a URL set
//  2. Depth accounting and exclusion filtering happen at enqueue time,
//     which most libraries hide
//  3. Reduces external dependencies and potential security issues
package crawler
