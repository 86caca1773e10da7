package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Anchor is one <a href> element extracted from a page.
type Anchor struct {
	// Text is the trimmed text content of the anchor element.
	Text string

	// URL is the absolute target URL, resolved against the page URL.
	URL string
}

// ParseResult contains the information extracted from one HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Anchors are all anchors on the page, in document order.
	Anchors []Anchor

	// InternalAnchors are the anchors whose target belongs to the audited
	// site (same domain or a subdomain of it).
	InternalAnchors []Anchor
}

// Parser extracts anchors from HTML content.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed HTML common on real sites and gives
// us the anchor's text content, which regex extraction mangles on nested
// markup.
type Parser struct {
	// pageURL is the URL of the page being parsed, used for resolving
	// relative hrefs.
	pageURL *url.URL

	// siteDomain is the registrable domain the audit is scoped to.
	siteDomain string
}

// NewParser creates a parser for a page. siteDomain scopes internal-link
// classification; anchors on the same domain or any subdomain of it are
// internal.
func NewParser(pageURL, siteDomain string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &Parser{pageURL: u, siteDomain: strings.ToLower(siteDomain)}, nil
}

// Parse walks the HTML document and collects anchors.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Anchors:         make([]Anchor, 0),
		InternalAnchors: make([]Anchor, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if href := getAttr(n, "href"); href != "" {
					if resolved := p.resolveURL(href); resolved != "" {
						anchor := Anchor{Text: anchorText(n), URL: resolved}
						result.Anchors = append(result.Anchors, anchor)
						if p.isInternal(resolved) {
							result.InternalAnchors = append(result.InternalAnchors, anchor)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// resolveURL resolves an href against the page URL and filters out
// non-navigable schemes. Returns "" for hrefs that are not crawl targets.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.pageURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// isInternal reports whether a URL belongs to the audited site.
// Subdomains count as internal: an audit of example.com follows links to
// shop.example.com, matching how site owners think about "their" URLs.
func (p *Parser) isInternal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == p.siteDomain || strings.HasSuffix(host, "."+p.siteDomain)
}

// anchorText returns the concatenated, trimmed text content of a node.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// SiteDomain derives the domain an audit is scoped to from the seed URL.
// A leading "www." is stripped so that an audit seeded at www.example.com
// still treats example.com links as internal.
func SiteDomain(seedURL string) (string, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}
