// Package model defines the core data structures shared across linkstatus:
// discovered links, resolution outcomes, result records, and audit reports.
// The package has no dependencies on other internal packages so that every
// layer (crawler, resolver, report, database) can share these types freely.
package model
