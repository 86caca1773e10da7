package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinels allow callers to use errors.Is() while still
// carrying a human-readable message.
var (
	// ErrNoStartURL is returned when no seed URL was provided.
	ErrNoStartURL = errors.New("no start URL specified: provide a seed page URL")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency bound is not
	// positive. Zero permits would deadlock the resolver.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRetries is returned when fewer than one attempt is configured.
	ErrInvalidRetries = errors.New("invalid retries: at least one attempt is required")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidMaxRedirects is returned when the redirect cap is below one.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be positive")

	// ErrInvalidPaceRange is returned when the pacing delay range is
	// negative or inverted.
	ErrInvalidPaceRange = errors.New("invalid pace range: min must be non-negative and max must not be below min")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
