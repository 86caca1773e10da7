package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mai-automation/linkstatus/internal/config"
	"github.com/mai-automation/linkstatus/internal/crawler"
	"github.com/mai-automation/linkstatus/internal/model"
	"github.com/mai-automation/linkstatus/internal/resolver"
)

// CrawlStep expands the link frontier from the seed page and stores the
// discovered link list on the report.
type CrawlStep struct {
	// client performs the page fetches.
	client *http.Client

	// cfg supplies depth, user agent, and exclusion patterns.
	cfg *config.Config

	// site carries per-site overrides (cookie, headers, depth).
	site config.SiteConfig

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlSiteConfig applies per-site overrides to the crawl.
func WithCrawlSiteConfig(site config.SiteConfig) CrawlStepOption {
	return func(s *CrawlStep) {
		s.site = site
	}
}

// NewCrawlStep creates the frontier-expansion step.
func NewCrawlStep(client *http.Client, cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, report *model.AuditReport) error {
	depth := s.cfg.MaxDepth
	if s.site.Depth > 0 {
		depth = s.site.Depth
	}

	excludes := s.cfg.ExcludePatterns
	if len(s.site.ExcludePatterns) > 0 {
		excludes = append(excludes, s.site.ExcludePatterns...)
	}

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(depth),
		crawler.WithSpiderUserAgent(s.cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(s.cfg.MaxBodySize),
		crawler.WithExcludePatterns(excludes),
	}
	if s.site.Cookie != "" {
		spiderOpts = append(spiderOpts, crawler.WithCookie(s.site.Cookie))
	}
	if len(s.site.Headers) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithHeaders(s.site.Headers))
	}

	spider := crawler.NewSpider(s.client, spiderOpts...)

	links, err := spider.Crawl(ctx, report.StartURL)
	if err != nil {
		// ctx cancellation is critical (nothing left to resolve);
		// partial results still go on the report.
		report.Links = links
		report.PagesCrawled = spider.Stats().PagesCrawled
		return fmt.Errorf("crawl failed: %w", err)
	}

	report.Links = links
	report.PagesCrawled = spider.Stats().PagesCrawled

	s.logger.Info("crawl completed",
		"pages_crawled", report.PagesCrawled,
		"links_found", len(links),
	)

	return nil
}

// ResolveStep resolves every discovered link to its terminal outcome under
// the governor's concurrency and pacing bounds.
type ResolveStep struct {
	// client performs the status requests. It must not follow redirects;
	// see resolver.NewHTTPClient.
	client *http.Client

	// cfg supplies retries, redirect cap, concurrency, and pacing.
	cfg *config.Config

	// site carries per-site overrides (cookie, headers).
	site config.SiteConfig

	// onProgress is forwarded to the resolver batch.
	onProgress func(completed, total int64, ratePerMinute float64)

	// logger for structured logging.
	logger *slog.Logger
}

// ResolveStepOption configures a ResolveStep.
type ResolveStepOption func(*ResolveStep)

// WithResolveLogger sets a custom logger for the resolve step.
func WithResolveLogger(logger *slog.Logger) ResolveStepOption {
	return func(s *ResolveStep) {
		s.logger = logger
	}
}

// WithResolveSiteConfig applies per-site overrides to resolution requests.
func WithResolveSiteConfig(site config.SiteConfig) ResolveStepOption {
	return func(s *ResolveStep) {
		s.site = site
	}
}

// WithResolveProgress sets a callback invoked after each completed
// resolution. It is called from resolution goroutines and must be safe
// for concurrent use.
func WithResolveProgress(fn func(completed, total int64, ratePerMinute float64)) ResolveStepOption {
	return func(s *ResolveStep) {
		s.onProgress = fn
	}
}

// NewResolveStep creates the link-resolution step.
func NewResolveStep(client *http.Client, cfg *config.Config, opts ...ResolveStepOption) *ResolveStep {
	s := &ResolveStep{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do executes the resolve step.
func (s *ResolveStep) Do(ctx context.Context, report *model.AuditReport) error {
	if len(report.Links) == 0 {
		s.logger.Debug("skipping resolution, no links discovered")
		return nil
	}

	resolverOpts := []resolver.Option{
		resolver.WithUserAgent(s.cfg.UserAgent),
		resolver.WithAccept(config.DefaultAccept),
		resolver.WithRetries(s.cfg.Retries),
		resolver.WithRetryDelay(s.cfg.RetryDelay),
		resolver.WithMaxRedirects(s.cfg.MaxRedirects),
		resolver.WithLogger(s.logger),
	}
	if s.site.Cookie != "" {
		resolverOpts = append(resolverOpts, resolver.WithResolverCookie(s.site.Cookie))
	}
	if len(s.site.Headers) > 0 {
		resolverOpts = append(resolverOpts, resolver.WithResolverHeaders(s.site.Headers))
	}

	res := resolver.New(s.client, resolverOpts...)
	gov := resolver.NewGovernor(
		s.cfg.MaxConcurrent,
		resolver.WithPaceRange(s.cfg.PaceMin, s.cfg.PaceMax),
	)

	batchOpts := []resolver.BatchOption{
		resolver.WithBatchLogger(s.logger),
	}
	if s.onProgress != nil {
		batchOpts = append(batchOpts, resolver.WithProgress(s.onProgress))
	}

	batch := resolver.NewBatch(res, gov, batchOpts...)

	records, skipped, err := batch.ResolveAll(ctx, report.Links)
	report.SkippedCount = skipped
	for _, rec := range records {
		report.AddRecord(rec)
	}
	if err != nil {
		return fmt.Errorf("resolution interrupted: %w", err)
	}

	return nil
}

// DefaultPipeline assembles the standard audit pipeline: crawl, then
// resolve. pageClient fetches pages during crawling and may follow
// redirects; statusClient must not (use resolver.NewHTTPClient).
func DefaultPipeline(
	pageClient, statusClient *http.Client,
	cfg *config.Config,
	site config.SiteConfig,
	logger *slog.Logger,
	onProgress func(completed, total int64, ratePerMinute float64),
) *Pipeline {
	p := New(WithLogger(logger))

	p.AddSteps(
		NewCrawlStep(pageClient, cfg,
			WithCrawlLogger(logger),
			WithCrawlSiteConfig(site),
		),
		NewResolveStep(statusClient, cfg,
			WithResolveLogger(logger),
			WithResolveSiteConfig(site),
			WithResolveProgress(onProgress),
		),
	)

	return p
}
