package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mai-automation/linkstatus/internal/model"
)

// Spider expands the link frontier of a website breadth-first.
// It owns the queue of (url, depth) pairs still to visit and the set of
// URLs already dequeued, and produces the flat list of discovered links.
type Spider struct {
	// client performs the page fetches.
	client *http.Client

	// maxDepth limits how deep to crawl from the seed URL.
	// 0 means only the seed page is expanded.
	maxDepth int

	// delay is an optional politeness pause between page fetches.
	delay time.Duration

	// userAgent is the User-Agent header to send.
	userAgent string

	// cookie and headers are optional per-site request additions.
	cookie  string
	headers map[string]string

	// maxBodySize limits how much of each response body is read.
	maxBodySize int64

	// excludePatterns are path fragments; URLs whose path contains any
	// fragment are never enqueued.
	excludePatterns []string

	// visited tracks URLs already dequeued to avoid refetching.
	visited map[string]bool

	// mutex protects visited and pageCount.
	mutex sync.Mutex

	// pageCount tracks pages fetched so far.
	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithDelay sets a politeness delay between page fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithCookie sets a cookie sent with every page fetch.
func WithCookie(cookie string) SpiderOption {
	return func(s *Spider) {
		s.cookie = cookie
	}
}

// WithHeaders sets additional headers sent with every page fetch.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithExcludePatterns sets path fragments that exclude URLs from the crawl.
// A URL is skipped when its path contains any of the fragments, e.g.
// "/wp-admin" or "/logout".
func WithExcludePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.excludePatterns = patterns
	}
}

// NewSpider creates a Spider using the given HTTP client.
//
// Design decision: We require an external client because the timeout and
// transport configuration belongs to the caller; tests inject clients
// pointed at httptest servers the same way.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    2,
		userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		maxBodySize: 5 * 1024 * 1024,
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// queueItem represents an item in the crawl frontier.
type queueItem struct {
	url   string
	depth int
}

// Crawl expands the frontier from seedURL and returns every internal link
// discovered, as (source page, anchor text, url) records. Pages that fail
// to fetch are skipped; the crawl continues with the rest of the frontier.
//
// Design decision: We return the full link list rather than streaming
// because the resolver needs the complete set up front to size its
// progress reporting, and link records are small.
func (s *Spider) Crawl(ctx context.Context, seedURL string) ([]model.Link, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported seed URL scheme %q", seed.Scheme)
	}

	siteDomain, err := SiteDomain(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	links := make([]model.Link, 0)
	queue := []queueItem{{url: seed.String(), depth: 0}}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return links, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		if s.isVisited(item.url) {
			continue
		}
		s.markVisited(item.url)

		anchors, err := s.fetchPage(ctx, item.url, siteDomain)
		if err != nil {
			// Some pages will fail; frontier expansion continues.
			continue
		}

		for _, anchor := range anchors {
			links = append(links, model.Link{
				SourcePage: item.url,
				AnchorText: anchor.Text,
				URL:        anchor.URL,
			})
			if item.depth < s.maxDepth && !s.isVisited(anchor.URL) && !s.isExcluded(anchor.URL) {
				queue = append(queue, queueItem{url: anchor.URL, depth: item.depth + 1})
			}
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return links, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return links, nil
}

// fetchPage fetches one page and returns its internal anchors.
func (s *Spider) fetchPage(ctx context.Context, pageURL, siteDomain string) ([]Anchor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s.mutex.Lock()
	s.pageCount++
	s.mutex.Unlock()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	parser, err := NewParser(pageURL, siteDomain)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	return result.InternalAnchors, nil
}

// isExcluded reports whether a URL's path contains any exclusion fragment.
func (s *Spider) isExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	for _, pattern := range s.excludePatterns {
		if pattern != "" && strings.Contains(u.Path, pattern) {
			return true
		}
	}
	return false
}

// isVisited checks if a URL has been dequeued already.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[normalizeURL(pageURL)]
}

// markVisited records a URL as dequeued.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[normalizeURL(pageURL)] = true
}

// normalizeURL normalizes a URL for deduplication: the fragment never
// changes page content, and an empty path equals "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Stats returns crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesCrawled: s.pageCount,
		URLsSeen:     len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesCrawled is the number of pages fetched.
	PagesCrawled int

	// URLsSeen is the number of unique URLs dequeued.
	URLsSeen int
}
