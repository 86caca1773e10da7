package model

import (
	"regexp"
	"sort"
)

// subfolderRegex extracts the first path segment of an absolute URL,
// e.g. "/blog" from "https://example.com/blog/post-1".
var subfolderRegex = regexp.MustCompile(`https?://[^/]+(/[^/]+)/`)

// CodeCount is the number of report rows that share one response code.
type CodeCount struct {
	// Code is the rendered response code ("404", "301", "Redirect Loop", ...).
	Code string `json:"code"`

	// Count is the number of rows with that code.
	Count int `json:"count"`
}

// SubfolderCount is the number of distinct failing URLs under one
// top-level path segment of the site.
type SubfolderCount struct {
	// Subfolder is the first path segment, e.g. "/blog".
	// Empty when the URL has no path beyond the host.
	Subfolder string `json:"subfolder"`

	// Count is the number of distinct URLs under that segment.
	Count int `json:"count"`
}

// Summary aggregates an audit's records for quick triage: how many links
// were checked, how many failed, and where the failures cluster.
type Summary struct {
	// TotalLinks is the number of links handed to the resolver.
	TotalLinks int `json:"total_links"`

	// Reported is the number of non-healthy links (report rows).
	Reported int `json:"reported"`

	// Skipped is the number of healthy (200 OK) links.
	Skipped int `json:"skipped"`

	// ByCode counts rows per response code, most frequent first.
	ByCode []CodeCount `json:"by_code"`

	// BySubfolder counts distinct failing URLs per top-level path
	// segment, most affected first.
	BySubfolder []SubfolderCount `json:"by_subfolder"`
}

// NewSummary computes the aggregate view of a finished audit.
func NewSummary(report *AuditReport) *Summary {
	s := &Summary{
		TotalLinks: len(report.Links),
		Reported:   len(report.Records),
		Skipped:    report.SkippedCount,
	}

	codes := make(map[string]int)
	// Deduplicate URLs before the subfolder breakdown; the same broken
	// URL is often linked from many pages.
	seen := make(map[string]bool)
	subfolders := make(map[string]int)

	for _, rec := range report.Records {
		codes[rec.ResponseCode]++
		if seen[rec.URL] {
			continue
		}
		seen[rec.URL] = true
		subfolders[extractSubfolder(rec.URL)]++
	}

	for code, count := range codes {
		s.ByCode = append(s.ByCode, CodeCount{Code: code, Count: count})
	}
	sort.Slice(s.ByCode, func(i, j int) bool {
		if s.ByCode[i].Count != s.ByCode[j].Count {
			return s.ByCode[i].Count > s.ByCode[j].Count
		}
		return s.ByCode[i].Code < s.ByCode[j].Code
	})

	for folder, count := range subfolders {
		s.BySubfolder = append(s.BySubfolder, SubfolderCount{Subfolder: folder, Count: count})
	}
	sort.Slice(s.BySubfolder, func(i, j int) bool {
		if s.BySubfolder[i].Count != s.BySubfolder[j].Count {
			return s.BySubfolder[i].Count > s.BySubfolder[j].Count
		}
		return s.BySubfolder[i].Subfolder < s.BySubfolder[j].Subfolder
	})

	return s
}

// extractSubfolder returns the first path segment of an absolute URL,
// or "" when the URL has no nested path.
func extractSubfolder(rawURL string) string {
	m := subfolderRegex.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
