// Package log provides secure logging utilities for linkstatus.
// Site configurations can carry cookies and authorization headers for
// auditing authenticated areas; the handler here keeps those values out
// of log output.
package log
