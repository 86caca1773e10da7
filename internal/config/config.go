package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match the behavior the tool was tuned for in production audits:
// polite enough not to trip abuse protections, fast enough for sites with
// thousands of URLs.
const (
	// DefaultMaxDepth limits frontier expansion from the seed page.
	// Depth 2 reaches everything linked from the seed and from the pages
	// it links to, which covers most site sections without exploding the
	// crawl on large sites.
	DefaultMaxDepth = 2

	// DefaultMaxConcurrent is the resolver's permit pool size. 30 parallel
	// requests keeps a full audit of a few thousand URLs in the minutes
	// range without looking like a flood to the target server.
	DefaultMaxConcurrent = 30

	// DefaultRequestTimeout is generous because slow CMS backends and CDN
	// cache misses routinely take tens of seconds on first hit.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultRetries is the total number of attempts per request before a
	// link is reported as a transient failure.
	DefaultRetries = 3

	// DefaultRetryDelay is the fixed wait between retry attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultMaxRedirects caps the redirect chain followed per link.
	DefaultMaxRedirects = 5

	// DefaultPaceMin and DefaultPaceMax bound the randomized delay imposed
	// before each request. Uniform jitter in this range avoids the regular
	// request cadence that rate limiters key on.
	DefaultPaceMin = 500 * time.Millisecond
	DefaultPaceMax = 2 * time.Second

	// DefaultUserAgent is a realistic browser identification. Several CDNs
	// serve different redirect behavior (or block outright) when they see
	// a generic Go client string, which would skew audit results.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

	// DefaultAccept mirrors what a browser sends alongside the User-Agent.
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

	// DefaultMaxBodySize limits how much of a fetched page is read during
	// crawling. 5MB is plenty for HTML while bounding memory per fetch.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "linkstatus"
)

// Config holds all options for one linkstatus run. It is populated from
// CLI flags plus the optional config file and passed through the
// application by dependency injection rather than global state.
type Config struct {
	// StartURL is the seed page the crawl begins at.
	StartURL string

	// MaxDepth is the breadth-first depth ceiling. Depth 0 means only the
	// seed page is expanded.
	MaxDepth int

	// MaxConcurrent bounds the number of in-flight resolutions.
	MaxConcurrent int

	// RequestTimeout is the hard per-request timeout.
	RequestTimeout time.Duration

	// Retries is the total number of attempts per request before the link
	// is reported as a transient failure. Must be at least 1.
	Retries int

	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration

	// MaxRedirects caps the number of redirect hops followed per link.
	MaxRedirects int

	// PaceMin and PaceMax bound the randomized pre-request delay.
	// Set both to zero to disable pacing (useful in tests).
	PaceMin time.Duration
	PaceMax time.Duration

	// ExcludePatterns are URL path fragments; URLs whose path matches any
	// pattern are never enqueued during crawling.
	ExcludePatterns []string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits response body reads during crawling.
	MaxBodySize int64

	// Output is the report file path. Empty means a dated default name
	// derived from the seed URL.
	Output string

	// JSONReport selects JSON output instead of CSV.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output instead of CSV.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// Verbose enables debug-level logging.
	Verbose bool

	// ConfigFilePath is the explicit config file path, if the user gave one.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory for the audit history database.
	// Empty disables persistence.
	DBDir string

	// SaveToDB indicates whether to persist the run for later comparison.
	SaveToDB bool
}

// NewConfig creates a Config with the default values. Many defaults are
// non-zero, so relying on zero values would be error prone; the constructor
// also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		MaxConcurrent:  DefaultMaxConcurrent,
		RequestTimeout: DefaultRequestTimeout,
		Retries:        DefaultRetries,
		RetryDelay:     DefaultRetryDelay,
		MaxRedirects:   DefaultMaxRedirects,
		PaceMin:        DefaultPaceMin,
		PaceMax:        DefaultPaceMax,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for linkstatus.
// On Linux: ~/.local/share/linkstatus
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkstatus.
// On Linux: ~/.config/linkstatus
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any network activity, so
// misconfiguration fails fast with a clear message.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrNoStartURL
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxConcurrent <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 1 {
		return ErrInvalidRetries
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.MaxRedirects < 1 {
		return ErrInvalidMaxRedirects
	}
	if c.PaceMin < 0 || c.PaceMax < c.PaceMin {
		return ErrInvalidPaceRange
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
