package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport accumulates everything produced during one audit run:
// the discovered link list, the resolved result records, and run metadata.
// Pipeline steps receive the report and fill in their part.
type AuditReport struct {
	// RunID uniquely identifies this audit run. It is generated at
	// construction time and used as the key for database persistence.
	RunID string `json:"run_id"`

	// StartURL is the seed page the crawl started from.
	StartURL string `json:"start_url"`

	// Site is the host of the seed URL. Link discovery is restricted to
	// this domain and its subdomains.
	Site string `json:"site"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall-clock time of the run.
	// Set by the pipeline when execution finishes.
	Duration time.Duration `json:"duration"`

	// PagesCrawled is the number of pages fetched during frontier expansion.
	PagesCrawled int `json:"pages_crawled"`

	// Links is the flat list of discovered links handed to the resolver.
	Links []Link `json:"links,omitempty"`

	// Records are the report rows for all non-skipped outcomes.
	// Order is unspecified; resolutions complete concurrently.
	Records []ResultRecord `json:"records"`

	// SkippedCount is the number of links that resolved 200 OK and were
	// filtered out of Records.
	SkippedCount int `json:"skipped_count"`

	// PerformedSteps names the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut indicates the run was cancelled before completing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the first critical step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewAuditReport creates an empty report for the given seed URL.
func NewAuditReport(startURL, site string) *AuditReport {
	return &AuditReport{
		RunID:     uuid.NewString(),
		StartURL:  startURL,
		Site:      site,
		StartedAt: time.Now(),
		Records:   make([]ResultRecord, 0),
	}
}

// AddRecord appends a result record to the report.
func (r *AuditReport) AddRecord(record ResultRecord) {
	r.Records = append(r.Records, record)
}

// BrokenURLs returns the set of distinct linked URLs that produced a
// report row. Used by run comparison to diff two audits.
func (r *AuditReport) BrokenURLs() map[string]string {
	urls := make(map[string]string, len(r.Records))
	for _, rec := range r.Records {
		if _, ok := urls[rec.URL]; !ok {
			urls[rec.URL] = rec.ResponseCode
		}
	}
	return urls
}
