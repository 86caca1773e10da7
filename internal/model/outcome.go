package model

import "strconv"

// OutcomeKind classifies the terminal result of resolving one Link.
//
// Design decision: We use an explicit kind enum plus per-kind fields rather
// than a Go error value because none of these states are faults to the
// caller. A redirect loop on one link is data to report, not an error to
// propagate, and the resolver's contract is that no error escapes it.
type OutcomeKind int

const (
	// OutcomeSkipped means the first response was 200 OK. Healthy links
	// produce no report row; this keeps the output limited to actionable items.
	OutcomeSkipped OutcomeKind = iota

	// OutcomeResolved means the link reached a terminal status. For redirect
	// responses, Destination carries the first hop's normalized target.
	OutcomeResolved

	// OutcomeRedirectLoop means a hop's destination was already visited in
	// this resolution's chain.
	OutcomeRedirectLoop

	// OutcomeTooManyRedirects means the chain exceeded the configured
	// maximum number of hops.
	OutcomeTooManyRedirects

	// OutcomeTransientFailure means every request attempt failed with a
	// network-level error (timeout, connection refused, ...).
	OutcomeTransientFailure
)

// String returns the kind name for logging.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeResolved:
		return "resolved"
	case OutcomeRedirectLoop:
		return "redirect_loop"
	case OutcomeTooManyRedirects:
		return "too_many_redirects"
	case OutcomeTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// Outcome is the terminal classification of a single Link's resolution.
// It is created once by the resolver and never mutated afterwards.
type Outcome struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind OutcomeKind `json:"kind"`

	// StatusCode is the HTTP status of the first response.
	// Zero for OutcomeTransientFailure.
	StatusCode int `json:"status_code,omitempty"`

	// Destination is the normalized redirect target of the first hop.
	// Empty when the response carried no Location header or the target
	// equals the requested URL.
	Destination string `json:"destination,omitempty"`

	// LoopPoint is the URL that closed the cycle for OutcomeRedirectLoop.
	LoopPoint string `json:"loop_point,omitempty"`

	// Chain is the ordered sequence of URLs visited while resolving the
	// link, starting from the link's own URL. No URL appears twice.
	Chain []string `json:"chain,omitempty"`

	// Err is the last network error for OutcomeTransientFailure.
	Err error `json:"-"`
}

// Skipped reports whether the link was healthy and should be omitted
// from the output record set.
func (o Outcome) Skipped() bool {
	return o.Kind == OutcomeSkipped
}

// Code renders the outcome for the "Response Code" report column.
// Numeric statuses stay numeric; safety-bound conditions use the
// human-readable labels the report consumers filter on.
func (o Outcome) Code() string {
	switch o.Kind {
	case OutcomeRedirectLoop:
		return "Redirect Loop"
	case OutcomeTooManyRedirects:
		return "Too Many Redirects"
	case OutcomeTransientFailure:
		return "Error"
	default:
		return strconv.Itoa(o.StatusCode)
	}
}
