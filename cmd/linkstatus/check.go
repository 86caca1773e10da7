package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mai-automation/linkstatus/internal/config"
	"github.com/mai-automation/linkstatus/internal/log"
	"github.com/mai-automation/linkstatus/internal/model"
	"github.com/mai-automation/linkstatus/internal/resolver"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url...]",
		Short: "Resolve a flat list of URLs without crawling",
		Long: `Check resolves each given URL to its terminal HTTP outcome, without
crawling any site. URLs can be passed as arguments, read from a file
with --list, or both.

The list file contains one URL per line; blank lines and lines starting
with # are ignored.

Examples:
  # Check a handful of URLs
  linkstatus check https://example.com/a https://example.com/b

  # Check every URL in a file
  linkstatus check --list urls.txt

  # Write the results as CSV
  linkstatus check --list urls.txt -o results.csv`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("list", "l", "",
		"File containing URLs to check, one per line")

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
	cmd.Flags().Bool("no-pace", false,
		"Disable randomized request pacing")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report instead of the text summary")
	cmd.Flags().StringP("output", "o", "",
		"Write results as CSV to the specified file path")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	urls, err := collectCheckURLs(cmd, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs provided (pass URLs as arguments or use --list)")
	}

	cfg, err := buildCheckConfig(cmd)
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cmd, cfg, urls, logger, verbose)
}

// collectCheckURLs gathers URLs from positional arguments and the --list
// file, preserving order: file entries first, then arguments.
func collectCheckURLs(cmd *cobra.Command, args []string) ([]string, error) {
	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	var urls []string
	if listPath != "" {
		f, err := os.Open(listPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open URL list: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read URL list: %w", err)
		}
	}

	return append(urls, args...), nil
}

// buildCheckConfig creates a Config from the check command's flags.
// Check has no crawl phase, so only resolution settings are read.
func buildCheckConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

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

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.Output, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// runCheck resolves the URL list and prints the results.
func runCheck(ctx context.Context, cmd *cobra.Command, cfg *config.Config, urls []string, logger *slog.Logger, verbose bool) error {
	links := make([]model.Link, 0, len(urls))
	for _, u := range urls {
		links = append(links, model.Link{URL: u})
	}

	res := resolver.New(resolver.NewHTTPClient(cfg.RequestTimeout),
		resolver.WithUserAgent(cfg.UserAgent),
		resolver.WithAccept(config.DefaultAccept),
		resolver.WithRetries(cfg.Retries),
		resolver.WithRetryDelay(cfg.RetryDelay),
		resolver.WithMaxRedirects(cfg.MaxRedirects),
		resolver.WithLogger(logger),
	)
	gov := resolver.NewGovernor(cfg.MaxConcurrent,
		resolver.WithPaceRange(cfg.PaceMin, cfg.PaceMax),
	)

	batchOpts := []resolver.BatchOption{
		resolver.WithBatchLogger(logger),
	}
	if fn := newProgressFunc(verbose); fn != nil {
		batchOpts = append(batchOpts, resolver.WithProgress(fn))
	}

	batch := resolver.NewBatch(res, gov, batchOpts...)

	fmt.Printf("Checking %d URLs...\n", len(links))
	startTime := time.Now()

	records, skipped, err := batch.ResolveAll(ctx, links)

	elapsed := time.Since(startTime)
	fmt.Printf("\nCheck completed in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Healthy (skipped): %d\n", skipped)
	fmt.Printf("  Reported: %d\n\n", len(records))

	checkReport := model.NewAuditReport("", "")
	checkReport.Links = links
	checkReport.SkippedCount = skipped
	checkReport.Duration = elapsed
	for _, rec := range records {
		checkReport.AddRecord(rec)
	}

	if outErr := outputCheckResults(cmd, cfg, checkReport); outErr != nil {
		logger.Error("failed to output results", "error", outErr)
	}

	if err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}
	return nil
}

// outputCheckResults writes check results as CSV when -o is given, JSON
// when --json is given, and a plain text listing otherwise.
func outputCheckResults(cmd *cobra.Command, cfg *config.Config, checkReport *model.AuditReport) error {
	if cfg.Output != "" || cfg.JSONReport {
		return outputReport(cfg, checkReport)
	}

	out := cmd.OutOrStdout()
	if len(checkReport.Records) == 0 {
		fmt.Fprintln(out, "All URLs are healthy.")
		return nil
	}

	for _, rec := range checkReport.Records {
		if rec.DestinationURL != "" {
			fmt.Fprintf(out, "  %-20s %s -> %s\n", rec.ResponseCode, rec.URL, rec.DestinationURL)
		} else {
			fmt.Fprintf(out, "  %-20s %s\n", rec.ResponseCode, rec.URL)
		}
	}
	return nil
}
