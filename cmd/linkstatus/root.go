// Package main provides the entry point for the linkstatus CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkstatus.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkstatus",
		Short: "Audit the health of every link on a website",
		Long: `linkstatus crawls a website's internal pages, resolves every discovered
link to its terminal HTTP outcome, and reports the links that are broken,
redirected, or unreachable.

Healthy links (200 OK on the first request) are excluded from the report;
the output contains only the links that need attention.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
