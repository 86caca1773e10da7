package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mai-automation/linkstatus/internal/config"
	"github.com/mai-automation/linkstatus/internal/database"
	"github.com/mai-automation/linkstatus/internal/model"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command inspects audit runs stored in the database and compares
// runs to show which links broke or recovered between audits.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "List stored audit runs and compare them",
		Long: `History lists the audit runs saved in the database and compares the
latest two runs for a site.

Comparison shows which reported links are new since the previous run and
which have recovered (they no longer appear in the report). It requires at
least two saved runs for the site. Use 'linkstatus audit' to perform
audits; runs are saved automatically unless --no-save is given.

Examples:
  # List all audited sites in the database
  linkstatus history --sites

  # List audit runs for a site
  linkstatus history example.com

  # Compare the latest two runs for a site
  linkstatus history --compare example.com

  # Output the comparison in JSON format
  linkstatus history --compare --json example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("sites", "s", false,
		"List all audited sites in the database")
	cmd.Flags().BoolP("compare", "c", false,
		"Compare the latest two runs for the specified site")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database, so a bad invocation
	// does not take the lock.
	var site string
	if !listSites {
		if len(args) == 0 {
			return errors.New("site is required (use --sites to see audited sites)")
		}
		site = normalizeSite(args[0])
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listSites {
		return listAuditedSites(ctx, db)
	}

	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	if compare {
		jsonOutput, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		return compareLatestRuns(ctx, db, site, jsonOutput)
	}

	return listRunHistory(ctx, db, site)
}

// normalizeSite strips the scheme and www prefix so users can pass either
// a bare host or the URL they audited.
func normalizeSite(s string) string {
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

// listAuditedSites lists all sites that have audit runs in the database.
func listAuditedSites(ctx context.Context, db *database.AuditDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Println("No audited sites found in the database.")
		fmt.Println("\nUse 'linkstatus audit <start-url>' to audit a site.")
		return nil
	}

	fmt.Printf("Audited sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Printf("  • %s\n", site)
	}
	fmt.Println("\nUse 'linkstatus history <site>' to see audit runs for a site.")

	return nil
}

// listRunHistory lists all audit runs for a specific site.
func listRunHistory(ctx context.Context, db *database.AuditDB, site string) error {
	runs, err := db.ListRuns(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No audit runs found for %s\n", site)
		fmt.Println("\nUse 'linkstatus audit' to audit this site.")
		return nil
	}

	fmt.Printf("Audit runs for %s (%d runs):\n\n", site, len(runs))
	fmt.Printf("  %-20s  %-8s  %-8s  %-10s  %s\n", "Date", "Pages", "Links", "Reported", "Duration")
	fmt.Println("  " + strings.Repeat("-", 64))

	for _, run := range runs {
		fmt.Printf("  %-20s  %-8d  %-8d  %-10d  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.PagesCrawled,
			run.LinksTotal,
			run.Reported,
			run.Duration.Round(time.Second),
		)
	}

	fmt.Println("\nUse 'linkstatus history --compare <site>' to compare the latest two runs.")

	return nil
}

// RunComparison holds the result of comparing two audit runs.
type RunComparison struct {
	// Site is the audited site.
	Site string `json:"site"`

	// PreviousRun and CurrentRun identify the compared runs.
	PreviousRun RunInfo `json:"previous_run"`
	CurrentRun  RunInfo `json:"current_run"`

	// NewlyBroken are URLs reported in the current run but not the previous.
	NewlyBroken []BrokenLink `json:"newly_broken,omitempty"`

	// Recovered are URLs reported in the previous run but not the current.
	Recovered []BrokenLink `json:"recovered,omitempty"`

	// UnchangedCount is the number of URLs reported in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// RunInfo summarizes one run for comparison display.
type RunInfo struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Reported is the number of distinct reported URLs.
	Reported int `json:"reported"`
}

// BrokenLink is one diffed URL with its reported response code.
type BrokenLink struct {
	// URL is the linked URL.
	URL string `json:"url"`

	// ResponseCode is the rendered outcome code from the run it appears in.
	ResponseCode string `json:"response_code"`
}

// compareLatestRuns compares the latest two runs for a site.
func compareLatestRuns(ctx context.Context, db *database.AuditDB, site string, jsonOutput bool) error {
	runs, err := db.LatestRuns(ctx, site, 2)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no audit runs found for %s", site)
	}
	if len(runs) < 2 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// LatestRuns returns newest first.
	comparison := compareRuns(runs[1], runs[0])

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	return outputComparisonText(comparison)
}

// compareRuns diffs the reported URL sets of two runs.
func compareRuns(previous, current *model.AuditReport) *RunComparison {
	previousURLs := previous.BrokenURLs()
	currentURLs := current.BrokenURLs()

	result := &RunComparison{
		Site: current.Site,
		PreviousRun: RunInfo{
			StartedAt: previous.StartedAt,
			Reported:  len(previousURLs),
		},
		CurrentRun: RunInfo{
			StartedAt: current.StartedAt,
			Reported:  len(currentURLs),
		},
	}

	for u, code := range currentURLs {
		if _, exists := previousURLs[u]; !exists {
			result.NewlyBroken = append(result.NewlyBroken, BrokenLink{URL: u, ResponseCode: code})
		} else {
			result.UnchangedCount++
		}
	}

	for u, code := range previousURLs {
		if _, exists := currentURLs[u]; !exists {
			result.Recovered = append(result.Recovered, BrokenLink{URL: u, ResponseCode: code})
		}
	}

	// Map iteration order is random; sort for stable output.
	sort.Slice(result.NewlyBroken, func(i, j int) bool {
		return result.NewlyBroken[i].URL < result.NewlyBroken[j].URL
	})
	sort.Slice(result.Recovered, func(i, j int) bool {
		return result.Recovered[i].URL < result.Recovered[j].URL
	})

	return result
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(result *RunComparison) error {
	fmt.Printf("Run Comparison: %s\n", result.Site)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nPrevious run: %s  (%d reported)\n",
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.PreviousRun.Reported)
	fmt.Printf("Current run:  %s  (%d reported)\n",
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.CurrentRun.Reported)

	if len(result.NewlyBroken) > 0 {
		fmt.Printf("\nNewly Broken (%d):\n", len(result.NewlyBroken))
		for _, link := range result.NewlyBroken {
			fmt.Printf("  [+] [%s] %s\n", link.ResponseCode, link.URL)
		}
	}

	if len(result.Recovered) > 0 {
		fmt.Printf("\nRecovered (%d):\n", len(result.Recovered))
		for _, link := range result.Recovered {
			fmt.Printf("  [-] [%s] %s\n", link.ResponseCode, link.URL)
		}
	}

	if len(result.NewlyBroken) == 0 && len(result.Recovered) == 0 {
		fmt.Println("\nNo changes between the two runs.")
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nStill reported: %d URLs\n", result.UnchangedCount)
	}

	return nil
}
