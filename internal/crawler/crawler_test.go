package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestParser tests HTML anchor extraction.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		content := `<html><head><title>Test Page</title></head><body></body></html>`
		parser, err := NewParser("http://example.com/page", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
	})

	t.Run("extracts anchors and classifies them", func(t *testing.T) {
		t.Parallel()

		content := `<html><body>
			<a href="/about">About Us</a>
			<a href="http://example.com/contact">Contact</a>
			<a href="http://shop.example.com/cart">Cart</a>
			<a href="http://other.com/external">External</a>
		</body></html>`

		parser, err := NewParser("http://example.com/page", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Anchors) != 4 {
			t.Errorf("expected 4 anchors, got %d", len(result.Anchors))
		}

		// Relative, same-domain, and subdomain anchors are internal
		if len(result.InternalAnchors) != 3 {
			t.Errorf("expected 3 internal anchors, got %d: %v", len(result.InternalAnchors), result.InternalAnchors)
		}
	})

	t.Run("resolves relative hrefs against page URL", func(t *testing.T) {
		t.Parallel()

		content := `<html><body><a href="../up">Up</a></body></html>`
		parser, err := NewParser("http://example.com/a/b/page.html", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Anchors) != 1 {
			t.Fatalf("expected 1 anchor, got %d", len(result.Anchors))
		}
		if result.Anchors[0].URL != "http://example.com/a/up" {
			t.Errorf("expected resolved URL 'http://example.com/a/up', got %q", result.Anchors[0].URL)
		}
	})

	t.Run("captures anchor text", func(t *testing.T) {
		t.Parallel()

		content := `<html><body><a href="/x"> Read   <b>More</b> </a></body></html>`
		parser, err := NewParser("http://example.com/", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Anchors) != 1 {
			t.Fatalf("expected 1 anchor, got %d", len(result.Anchors))
		}
		if result.Anchors[0].Text != "Read More" {
			t.Errorf("expected anchor text 'Read More', got %q", result.Anchors[0].Text)
		}
	})

	t.Run("filters non-navigable hrefs", func(t *testing.T) {
		t.Parallel()

		content := `<html><body>
			<a href="#">Top</a>
			<a href="javascript:void(0)">JS</a>
			<a href="mailto:a@example.com">Mail</a>
			<a href="tel:+123456789">Phone</a>
			<a href="ftp://files.example.com/x">FTP</a>
			<a href="/real">Real</a>
		</body></html>`

		parser, err := NewParser("http://example.com/", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Anchors) != 1 {
			t.Errorf("expected 1 anchor, got %d: %v", len(result.Anchors), result.Anchors)
		}
	})

	t.Run("handles malformed HTML", func(t *testing.T) {
		t.Parallel()

		// The parser's error recovery reopens the unclosed <a> inside the
		// <div>, so /x appears twice before /y.
		content := `<html><body><a href="/x">Unclosed<div><a href="/y">Nested`
		parser, err := NewParser("http://example.com/", "example.com")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Anchors) != 3 {
			t.Fatalf("expected 3 anchors, got %d: %v", len(result.Anchors), result.Anchors)
		}
		wantURLs := []string{
			"http://example.com/x",
			"http://example.com/x",
			"http://example.com/y",
		}
		for i, want := range wantURLs {
			if result.Anchors[i].URL != want {
				t.Errorf("anchor %d: expected %q, got %q", i, want, result.Anchors[i].URL)
			}
		}
	})
}

// TestSiteDomain tests seed URL to site domain derivation.
func TestSiteDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seedURL string
		want    string
	}{
		{name: "plain domain", seedURL: "http://example.com/", want: "example.com"},
		{name: "www stripped", seedURL: "https://www.example.com/page", want: "example.com"},
		{name: "subdomain kept", seedURL: "https://blog.example.com/", want: "blog.example.com"},
		{name: "port stripped", seedURL: "http://example.com:8080/", want: "example.com"},
		{name: "case lowered", seedURL: "http://EXAMPLE.com/", want: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SiteDomain(tt.seedURL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestSpiderCrawl tests breadth-first frontier expansion.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("collects links from linked pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/a">Page A</a></body></html>`)
		})
		mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/b">Page B</a></body></html>`)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2))
		links, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 2 {
			t.Fatalf("expected 2 links, got %d: %v", len(links), links)
		}
		if links[0].URL != server.URL+"/a" {
			t.Errorf("expected first link %q, got %q", server.URL+"/a", links[0].URL)
		}
		if links[0].SourcePage != server.URL {
			t.Errorf("expected source page %q, got %q", server.URL, links[0].SourcePage)
		}
		if links[0].AnchorText != "Page A" {
			t.Errorf("expected anchor text 'Page A', got %q", links[0].AnchorText)
		}
	})

	t.Run("respects max depth", func(t *testing.T) {
		t.Parallel()

		// Chain of pages /0 -> /1 -> /2 -> ...
		mux := http.NewServeMux()
		for i := 0; i < 5; i++ {
			i := i
			mux.HandleFunc(fmt.Sprintf("/%d", i), func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprintf(w, `<html><body><a href="/%d">Next</a></body></html>`, i+1)
			})
		}

		server := httptest.NewServer(mux)
		defer server.Close()

		// Depth 1: expand the seed /0 and the linked page /1, but do not
		// expand /2 even though it is discovered.
		spider := NewSpider(server.Client(), WithMaxDepth(1))
		links, err := spider.Crawl(context.Background(), server.URL+"/0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 2 {
			t.Errorf("expected 2 links, got %d: %v", len(links), links)
		}
		if spider.Stats().PagesCrawled != 2 {
			t.Errorf("expected 2 pages crawled, got %d", spider.Stats().PagesCrawled)
		}
	})

	t.Run("deduplicates visited pages", func(t *testing.T) {
		t.Parallel()

		var fetchCount int
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				fetchCount++
			}
			w.Header().Set("Content-Type", "text/html")
			// Every page links back to the root with varying fragments.
			fmt.Fprint(w, `<html><body>
				<a href="/">Home</a>
				<a href="/#section">Section</a>
				<a href="/other">Other</a>
			</body></html>`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(3))
		_, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if fetchCount != 1 {
			t.Errorf("expected root fetched once, got %d", fetchCount)
		}
	})

	t.Run("skips excluded paths", func(t *testing.T) {
		t.Parallel()

		var archiveFetched bool
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>
				<a href="/archive/2020">Archive</a>
				<a href="/news">News</a>
			</body></html>`)
		})
		mux.HandleFunc("/archive/", func(w http.ResponseWriter, _ *http.Request) {
			archiveFetched = true
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})
		mux.HandleFunc("/news", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithMaxDepth(2),
			WithExcludePatterns([]string{"/archive/"}),
		)
		links, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Excluded links are still discovered (and will be resolved),
		// but the excluded page itself is never fetched.
		if len(links) != 2 {
			t.Errorf("expected 2 links, got %d", len(links))
		}
		if archiveFetched {
			t.Error("expected excluded page not to be fetched")
		}
	})

	t.Run("sends configured headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotCookie, gotCustom string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotCookie = r.Header.Get("Cookie")
			gotCustom = r.Header.Get("X-Audit")
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		}))
		defer server.Close()

		spider := NewSpider(server.Client(),
			WithSpiderUserAgent("test-agent/1.0"),
			WithCookie("session=abc"),
			WithHeaders(map[string]string{"X-Audit": "yes"}),
		)
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotUA != "test-agent/1.0" {
			t.Errorf("expected custom user agent, got %q", gotUA)
		}
		if gotCookie != "session=abc" {
			t.Errorf("expected cookie, got %q", gotCookie)
		}
		if gotCustom != "yes" {
			t.Errorf("expected custom header, got %q", gotCustom)
		}
	})

	t.Run("skips non-HTML responses", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/data.json">Data</a></body></html>`)
		})
		mux.HandleFunc("/data.json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"a": "<a href=\"/fake\">x</a>"}`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2))
		links, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 {
			t.Errorf("expected 1 link, got %d: %v", len(links), links)
		}
	})

	t.Run("continues after fetch failures", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>
				<a href="/broken">Broken</a>
				<a href="/ok">OK</a>
			</body></html>`)
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/deep">Deep</a></body></html>`)
		})
		mux.HandleFunc("/deep", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2))
		links, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 3 {
			t.Errorf("expected 3 links, got %d: %v", len(links), links)
		}
	})

	t.Run("returns partial results on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/a">A</a><a href="/b">B</a></body></html>`)
		})
		mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
			cancel()
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxDepth(2), WithDelay(10*time.Millisecond))
		links, err := spider.Crawl(ctx, server.URL)
		if err == nil {
			t.Fatal("expected context error")
		}
		if len(links) != 2 {
			t.Errorf("expected 2 partial links, got %d", len(links))
		}
	})

	t.Run("rejects invalid seed URL", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(http.DefaultClient)
		if _, err := spider.Crawl(context.Background(), "ftp://example.com/"); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})
}
