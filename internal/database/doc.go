// Package database provides SQLite-based persistence for audit runs.
// Saved runs power the history and comparison commands: which links broke
// since the last audit, and which were fixed.
package database
