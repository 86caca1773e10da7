package model

import (
	"errors"
	"testing"
)

// TestOutcomeCode tests rendering for the Response Code report column.
func TestOutcomeCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "numeric status",
			outcome: Outcome{Kind: OutcomeResolved, StatusCode: 404},
			want:    "404",
		},
		{
			name:    "redirect status",
			outcome: Outcome{Kind: OutcomeResolved, StatusCode: 301},
			want:    "301",
		},
		{
			name:    "redirect loop",
			outcome: Outcome{Kind: OutcomeRedirectLoop, StatusCode: 302},
			want:    "Redirect Loop",
		},
		{
			name:    "too many redirects",
			outcome: Outcome{Kind: OutcomeTooManyRedirects, StatusCode: 301},
			want:    "Too Many Redirects",
		},
		{
			name:    "transient failure",
			outcome: Outcome{Kind: OutcomeTransientFailure, Err: errors.New("connection refused")},
			want:    "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.outcome.Code(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestOutcomeSkipped tests healthy-link classification.
func TestOutcomeSkipped(t *testing.T) {
	t.Parallel()

	if !(Outcome{Kind: OutcomeSkipped, StatusCode: 200}).Skipped() {
		t.Error("expected 200 outcome to be skipped")
	}
	if (Outcome{Kind: OutcomeResolved, StatusCode: 404}).Skipped() {
		t.Error("expected 404 outcome not to be skipped")
	}
}

// TestOutcomeKindString tests kind names used in logs.
func TestOutcomeKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeSkipped, "skipped"},
		{OutcomeResolved, "resolved"},
		{OutcomeRedirectLoop, "redirect_loop"},
		{OutcomeTooManyRedirects, "too_many_redirects"},
		{OutcomeTransientFailure, "transient_failure"},
		{OutcomeKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
