// Package main provides the entry point for the webwalk CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webwalk.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webwalk",
		Short: "Concurrent same-site web crawler",
		Long: `Webwalk crawls a website starting from a root URL and maps every page
reachable on the same host. Links pointing to other hosts are recorded
but never followed.

Crawl results can be printed as text, JSON, or Markdown, and every run
is saved to a local history database for later comparison.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
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
