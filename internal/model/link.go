package model

// Link is a discovered anchor reference from a source page to a target URL.
// Links are produced by the crawler and consumed exactly once by the resolver.
// A Link is immutable once created; resolution state lives in Outcome, not here.
type Link struct {
	// SourcePage is the URL of the page the anchor was found on.
	SourcePage string `json:"source_page"`

	// AnchorText is the trimmed text content of the anchor element.
	AnchorText string `json:"anchor_text"`

	// URL is the absolute target URL of the anchor.
	URL string `json:"url"`
}
