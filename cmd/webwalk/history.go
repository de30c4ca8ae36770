package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webwalk/internal/config"
	"github.com/nao1215/webwalk/internal/database"
	"github.com/nao1215/webwalk/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawl runs",
		Long: `History lists the crawl runs recorded in the local database.

Every crawl is saved automatically unless --no-save was used. Use the
--run flag to show the pages and failures of a single run.

Examples:
  # Show the 20 most recent runs
  webwalk history

  # Show all runs
  webwalk history -n 0

  # Show the pages and failures of run 3
  webwalk history --run 3

  # Dump run 3 as JSON
  webwalk history --run 3 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().Int64("run", 0,
		"Show the pages and failures of the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Require the database to exist: history is read-only and should not
	// create an empty database just to report it is empty.
	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl history found.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'webwalk crawl <url>' to record a crawl.")
		return nil
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID > 0 {
		return showRun(ctx, cmd, db, runID, jsonOutput)
	}
	return listRuns(ctx, cmd, db, limit, jsonOutput)
}

// listRuns prints a summary line for each stored run.
func listRuns(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, limit int, jsonOutput bool) error {
	runs, err := db.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl history found.")
		fmt.Fprintln(out, "\nUse 'webwalk crawl <url>' to record a crawl.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %-8s  %s\n", "ID", "Date", "Visited", "Failed", "Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, run := range runs {
		status := ""
		if run.Cancelled {
			status = " (cancelled)"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-8d  %-8d  %s%s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Visited,
			run.Failed,
			run.Root,
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'webwalk history --run <id>' to see the pages of a run.")
	return nil
}

// showRun prints the pages and failures stored for a single run.
func showRun(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, runID int64, jsonOutput bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found (use 'webwalk history' to list runs)", runID)
	}

	pages, err := db.RunPages(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}
	failures, err := db.RunFailures(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load failures: %w", err)
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Run      *database.Run   `json:"run"`
			Pages    []model.Page    `json:"pages"`
			Failures []model.Failure `json:"failures"`
		}{run, pages, failures})
	}

	fmt.Fprintf(out, "Run %d: %s\n", run.ID, run.Root)
	fmt.Fprintf(out, "  Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "  Discovered: %d\n", run.TotalDiscovered)
	if run.Cancelled {
		fmt.Fprintln(out, "  Status:     CANCELLED (partial results)")
	}

	fmt.Fprintf(out, "\nPages (%d):\n", len(pages))
	for _, page := range pages {
		title := ""
		if page.Title != "" {
			title = "  " + page.Title
		}
		fmt.Fprintf(out, "  [%d] %s%s\n", page.StatusCode, page.URL, title)
	}

	if len(failures) > 0 {
		fmt.Fprintf(out, "\nFailures (%d):\n", len(failures))
		for _, failure := range failures {
			detail := ""
			if failure.Detail != "" {
				detail = "  " + failure.Detail
			}
			fmt.Fprintf(out, "  [%s] %s%s\n", failure.Kind, failure.URL, detail)
		}
	}

	return nil
}
