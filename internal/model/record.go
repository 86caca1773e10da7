package model

// ResultRecord is the externally visible unit of output: one row in the
// status report. It is derived deterministically from a Link and its Outcome.
//
// Design decision: Records are always built from the Link carried by the
// resolution task itself, never by indexing results against the input list.
// Completion order is unspecified under concurrency, so positional zipping
// would attribute outcomes to the wrong links.
type ResultRecord struct {
	// SourcePage is the page the link was discovered on.
	SourcePage string `json:"source_page"`

	// AnchorText is the anchor text of the discovered link.
	AnchorText string `json:"anchor_text"`

	// URL is the linked URL that was resolved.
	URL string `json:"url"`

	// ResponseCode is the rendered outcome code: a numeric HTTP status,
	// "Redirect Loop", "Too Many Redirects", or "Error".
	ResponseCode string `json:"response_code"`

	// DestinationURL is the redirect target, empty when the link resolved
	// in place. For transient failures it carries the last error text so
	// the report stays self-contained.
	DestinationURL string `json:"destination_url"`
}

// NewResultRecord derives the report row for a resolved link.
// Callers must not invoke it for skipped (200 OK) outcomes.
func NewResultRecord(link Link, outcome Outcome) ResultRecord {
	record := ResultRecord{
		SourcePage:   link.SourcePage,
		AnchorText:   link.AnchorText,
		URL:          link.URL,
		ResponseCode: outcome.Code(),
	}

	switch outcome.Kind {
	case OutcomeRedirectLoop:
		record.DestinationURL = outcome.LoopPoint
	case OutcomeTransientFailure:
		if outcome.Err != nil {
			record.DestinationURL = outcome.Err.Error()
		}
	default:
		if outcome.Destination != link.URL {
			record.DestinationURL = outcome.Destination
		}
	}

	return record
}
