package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mai-automation/linkstatus/internal/config"
	"github.com/mai-automation/linkstatus/internal/crawler"
	"github.com/mai-automation/linkstatus/internal/database"
	"github.com/mai-automation/linkstatus/internal/log"
	"github.com/mai-automation/linkstatus/internal/model"
	"github.com/mai-automation/linkstatus/internal/pipeline"
	"github.com/mai-automation/linkstatus/internal/report"
	"github.com/mai-automation/linkstatus/internal/resolver"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <start-url>",
		Short: "Crawl a website and report the status of every link",
		Long: `Audit crawls a website starting from the given URL, collects every link
on the discovered pages, and resolves each link to its terminal HTTP outcome.

Links that return 200 OK on the first request are considered healthy and
excluded from the report. Everything else is reported: broken links,
redirects (with their destination), redirect loops, and links that could
not be reached after retries.

Examples:
  # Audit a site with default settings (depth 2, 30 concurrent requests)
  linkstatus audit https://example.com

  # Deeper crawl with lower concurrency
  linkstatus audit --depth 3 --concurrency 10 https://example.com

  # Skip sections of the site
  linkstatus audit --exclude /archive/ --exclude /tags/ https://example.com

  # Output JSON instead of CSV
  linkstatus audit --json -o report.json https://example.com

Configuration file (.linkstatus) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
    intranet.example.com:
      depth: 3
      exclude_patterns:
        - /archive/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAuditCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl recursion depth from the start URL")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"URL path fragment to exclude from crawling (repeatable)")

	// Resolution behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultMaxConcurrent,
		"Number of concurrent link resolutions")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Total attempts per request before reporting a transient failure")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Delay between retry attempts")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirect hops followed per link")
	cmd.Flags().Duration("pace-min", config.DefaultPaceMin,
		"Minimum randomized delay before each request")
	cmd.Flags().Duration("pace-max", config.DefaultPaceMax,
		"Maximum randomized delay before each request")
	cmd.Flags().Bool("no-pace", false,
		"Disable randomized request pacing")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkstatus in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (default: dated CSV in current directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not save the run to the audit history database")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with sensitive-value redaction
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAudit(ctx, cfg, logger, verbose)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if len(args) > 0 {
		cfg.StartURL = args[0]
	}

	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.ExcludePatterns, err = cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return nil, err
	}

	cfg.MaxConcurrent, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Retries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.RetryDelay, err = cmd.Flags().GetDuration("retry-delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxRedirects, err = cmd.Flags().GetInt("max-redirects")
	if err != nil {
		return nil, err
	}

	cfg.PaceMin, err = cmd.Flags().GetDuration("pace-min")
	if err != nil {
		return nil, err
	}
	cfg.PaceMax, err = cmd.Flags().GetDuration("pace-max")
	if err != nil {
		return nil, err
	}
	noPace, err := cmd.Flags().GetBool("no-pace")
	if err != nil {
		return nil, err
	}
	if noPace {
		cfg.PaceMin = 0
		cfg.PaceMax = 0
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.Output, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.SaveToDB {
		cfg.DBDir = config.XDGDataDir()
	}

	return cfg, nil
}

// runAudit executes the full audit: crawl, resolve, report, persist.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger, verbose bool) error {
	site, err := crawler.SiteDomain(cfg.StartURL)
	if err != nil {
		return fmt.Errorf("invalid start URL %q: %w", cfg.StartURL, err)
	}

	logger.Info("starting audit",
		"startURL", cfg.StartURL,
		"site", site,
		"maxDepth", cfg.MaxDepth,
		"concurrency", cfg.MaxConcurrent,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.AuditDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	siteConfig := cfg.SiteConfigs.GetSiteConfig(site)

	// Page fetches during crawling follow redirects like a browser; status
	// requests must not, so the resolver can observe every hop.
	pageClient := &http.Client{Timeout: cfg.RequestTimeout}
	statusClient := resolver.NewHTTPClient(cfg.RequestTimeout)

	onProgress := newProgressFunc(verbose)

	p := pipeline.DefaultPipeline(pageClient, statusClient, cfg, siteConfig, logger, onProgress)

	auditReport := model.NewAuditReport(cfg.StartURL, site)

	fmt.Printf("Auditing %s...\n", cfg.StartURL)
	startTime := time.Now()

	execErr := p.Execute(ctx, auditReport)

	elapsed := time.Since(startTime)
	fmt.Printf("\nAudit completed in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Pages crawled: %d\n", auditReport.PagesCrawled)
	fmt.Printf("  Links checked: %d\n", len(auditReport.Links))
	fmt.Printf("  Healthy (skipped): %d\n", auditReport.SkippedCount)
	fmt.Printf("  Reported: %d\n\n", len(auditReport.Records))

	// Partial results are still worth reporting and saving after an
	// interrupted run.
	if err := outputReport(cfg, auditReport); err != nil {
		logger.Error("report failed", "site", site, "error", err)
	}

	if err := saveAuditReport(ctx, db, auditReport, logger); err != nil {
		logger.Error("failed to save audit report", "site", site, "error", err)
	}

	if execErr != nil {
		return fmt.Errorf("audit failed: %w", execErr)
	}
	return nil
}

// newProgressFunc returns a progress callback that renders a terminal
// progress bar. The bar is created on the first call, once the total is
// known. In verbose mode the bar would interleave with log output, so no
// bar is shown.
func newProgressFunc(verbose bool) func(completed, total int64, ratePerMinute float64) {
	if verbose {
		return nil
	}

	var mu sync.Mutex
	var bar *progressbar.ProgressBar

	return func(completed, total int64, ratePerMinute float64) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(int(total),
				progressbar.OptionSetDescription("resolving links"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}

		bar.Describe(fmt.Sprintf("resolving links (%.0f req/min)", ratePerMinute))
		_ = bar.Set64(completed) //nolint:errcheck // Rendering errors are not actionable
	}
}

// defaultOutputPath builds the dated default report filename, e.g.
// 2025-03-14_blog_status_report.csv for an audit seeded at
// https://example.com/blog. The keyword is the last path segment of the
// seed URL, or the host when the seed is the site root.
func defaultOutputPath(auditReport *model.AuditReport) string {
	trimmed := strings.TrimRight(auditReport.StartURL, "/")
	keyword := trimmed
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		keyword = trimmed[i+1:]
	}
	if keyword == "" {
		keyword = auditReport.Site
	}
	return fmt.Sprintf("%s_%s_status_report.csv",
		auditReport.StartedAt.Format("2006-01-02"), keyword)
}

// outputReport outputs the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	outputPath := cfg.Output
	if outputPath == "" && !cfg.JSONReport && !cfg.MarkdownReport {
		outputPath = defaultOutputPath(auditReport)
	}

	// Determine output destination
	var output *os.File
	if outputPath != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithIndent())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewCSVWriter(output)
	}

	if _, err := writer.Write(auditReport); err != nil {
		return err
	}

	if outputPath != "" {
		fmt.Printf("Report written to %s\n", outputPath)
	}
	return nil
}

// saveAuditReport saves the audit report to the database if enabled.
// If db is nil, this function is a no-op.
func saveAuditReport(ctx context.Context, db *database.AuditDB, auditReport *model.AuditReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveAuditReport(ctx, auditReport); err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database",
		"site", auditReport.Site,
		"runID", auditReport.RunID,
	)
	return nil
}
