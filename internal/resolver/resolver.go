package resolver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mai-automation/linkstatus/internal/model"
)

// redirectStatuses are the HTTP statuses whose Location header we follow.
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true, // 301
	http.StatusFound:             true, // 302
	http.StatusSeeOther:          true, // 303
	http.StatusTemporaryRedirect: true, // 307
	http.StatusPermanentRedirect: true, // 308
}

// Resolver resolves a single link to its terminal outcome.
//
// Each resolution is an independent unit of work: the redirect chain and
// visited set live on the stack of Resolve, so resolutions can run
// concurrently without sharing mutable state.
type Resolver struct {
	// client performs the requests. It must not follow redirects itself;
	// use NewHTTPClient or configure CheckRedirect accordingly.
	client *http.Client

	// userAgent and accept identify the request as a realistic browser.
	// Some CDNs serve different redirect behavior to generic client strings.
	userAgent string
	accept    string

	// cookie and headers are optional per-site request additions.
	cookie  string
	headers map[string]string

	// retries is the total number of attempts per request.
	retries int

	// retryDelay is the fixed wait between attempts.
	retryDelay time.Duration

	// maxRedirects caps the number of hops followed per link.
	maxRedirects int

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) Option {
	return func(r *Resolver) {
		r.accept = accept
	}
}

// WithResolverCookie sets a cookie sent with every request.
func WithResolverCookie(cookie string) Option {
	return func(r *Resolver) {
		r.cookie = cookie
	}
}

// WithResolverHeaders sets additional headers sent with every request.
func WithResolverHeaders(headers map[string]string) Option {
	return func(r *Resolver) {
		r.headers = headers
	}
}

// WithRetries sets the total number of attempts per request.
// Values below one are ignored.
func WithRetries(retries int) Option {
	return func(r *Resolver) {
		if retries >= 1 {
			r.retries = retries
		}
	}
}

// WithRetryDelay sets the fixed delay between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.retryDelay = d
	}
}

// WithMaxRedirects sets the redirect chain cap.
// Values below one are ignored.
func WithMaxRedirects(n int) Option {
	return func(r *Resolver) {
		if n >= 1 {
			r.maxRedirects = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver using the given HTTP client.
//
// Design decision: We require an external client rather than building one
// because timeout and transport configuration belongs to the caller, and
// tests inject clients pointed at httptest servers the same way.
func New(client *http.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:       client,
		userAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		accept:       "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		retries:      3,
		retryDelay:   2 * time.Second,
		maxRedirects: 5,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// NewHTTPClient builds an HTTP client suitable for the Resolver: it never
// follows redirects on its own (the Resolver walks the chain itself so it
// can check every hop against the visited set) and enforces a hard
// per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Resolve determines the terminal outcome of one link.
//
// The chain is followed request by request: each hop's Location target is
// normalized against the current URL and checked against the set of URLs
// already visited in this resolution before the next request is issued.
// The loop check runs before following because an unguarded chain between
// two mutually redirecting URLs would spin until the hop cap.
//
// The reported status and destination always come from the first hop; later
// hops exist to classify the chain (loop, too many redirects), not to
// re-resolve the link. A 200 on the first hop means the link is healthy and
// is skipped from the output entirely.
//
// Resolve never returns an error: every failure path maps to an outcome.
func (r *Resolver) Resolve(ctx context.Context, link model.Link) model.Outcome {
	current := link.URL
	chain := []string{link.URL}
	visited := map[string]bool{link.URL: true}

	var firstStatus int
	var firstDestination string
	hops := 0

	for {
		status, location, err := r.request(ctx, current)
		if err != nil {
			r.logger.Debug("resolution failed",
				"url", link.URL,
				"attempts", r.retries,
				"error", err,
			)
			return model.Outcome{Kind: model.OutcomeTransientFailure, Chain: chain, Err: err}
		}

		destination := normalizeDestination(current, location)

		if hops == 0 {
			// Healthy links produce no report entry.
			if status == http.StatusOK {
				return model.Outcome{Kind: model.OutcomeSkipped, StatusCode: status, Chain: chain}
			}
			firstStatus = status
			firstDestination = destination
		}

		// Terminal: no onward target, a self-redirect, or a status whose
		// Location header is not a redirect instruction.
		if destination == "" || destination == current || !redirectStatuses[status] {
			dest := firstDestination
			if dest == link.URL {
				dest = ""
			}
			return model.Outcome{
				Kind:        model.OutcomeResolved,
				StatusCode:  firstStatus,
				Destination: dest,
				Chain:       chain,
			}
		}

		if visited[destination] {
			r.logger.Debug("redirect loop detected",
				"url", link.URL,
				"loop_point", destination,
			)
			return model.Outcome{
				Kind:        model.OutcomeRedirectLoop,
				StatusCode:  firstStatus,
				Destination: firstDestination,
				LoopPoint:   destination,
				Chain:       chain,
			}
		}

		visited[destination] = true
		chain = append(chain, destination)
		hops++

		if hops > r.maxRedirects {
			r.logger.Debug("too many redirects",
				"url", link.URL,
				"hops", hops,
			)
			return model.Outcome{
				Kind:        model.OutcomeTooManyRedirects,
				StatusCode:  firstStatus,
				Destination: firstDestination,
				Chain:       chain,
			}
		}

		current = destination
	}
}

// request issues one non-redirect-following GET, retrying transient
// failures up to the configured attempt count with a fixed delay between
// attempts. It returns the status code and raw Location header.
func (r *Resolver) request(ctx context.Context, rawURL string) (int, string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.retries; attempt++ {
		if attempt > 1 {
			r.logger.Debug("retrying request",
				"url", rawURL,
				"attempt", attempt,
				"of", r.retries,
			)
			timer := time.NewTimer(r.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, "", ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			// Not retriable: the URL itself is unusable.
			return 0, "", err
		}

		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", r.accept)
		if r.cookie != "" {
			req.Header.Set("Cookie", r.cookie)
		}
		for k, v := range r.headers {
			req.Header.Set(k, v)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Drain a little so the connection can be reused, then close.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Best effort drain
		location := resp.Header.Get("Location")
		status := resp.StatusCode
		if err := resp.Body.Close(); err != nil {
			r.logger.Debug("failed to close response body", "url", rawURL, "error", err)
		}

		return status, location, nil
	}

	return 0, "", lastErr
}

// normalizeDestination resolves a Location header value against the URL it
// was served from. A missing or unparseable value yields "", which callers
// treat as a terminal resolution rather than an error.
func normalizeDestination(current, location string) string {
	if location == "" {
		return ""
	}

	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	target, err := url.Parse(location)
	if err != nil {
		return ""
	}

	return base.ResolveReference(target).String()
}
