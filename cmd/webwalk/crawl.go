package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webwalk/internal/config"
	"github.com/nao1215/webwalk/internal/crawler"
	"github.com/nao1215/webwalk/internal/database"
	"github.com/nao1215/webwalk/internal/fetcher"
	"github.com/nao1215/webwalk/internal/log"
	"github.com/nao1215/webwalk/internal/model"
	"github.com/nao1215/webwalk/internal/report"
	"github.com/nao1215/webwalk/internal/urlnorm"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website and map its same-site pages",
		Long: `Crawl starts from the given root URL and visits every page reachable
on the same host. Links to other hosts are recorded on the page they
were found on but never followed.

Each URL is fetched exactly once. Transient network failures are
retried with exponential backoff; HTTP error responses are recorded
as failures without retrying.

Examples:
  # Crawl a site with default settings
  webwalk crawl https://example.com

  # Limit depth and page count
  webwalk crawl -d 3 -p 100 https://example.com

  # Slow down for a fragile server
  webwalk crawl --delay 500ms -w 2 https://example.com

  # Output JSON report to a file
  webwalk crawl --json -o report.json https://example.com

Configuration file (.webwalk) example:
  sites:
    intranet.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkerCount,
		"Number of concurrent crawl workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryBudget,
		"Retry budget for transient network failures")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the root (0 = unlimited)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Stop after fetching this many pages (0 = unlimited)")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests across all workers")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes to read per page")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webwalk in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not record this crawl in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.RootURL = args[0]

	var err error

	cfg.WorkerCount, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RetryBudget, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

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

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
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

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"root", cfg.RootURL,
		"workers", cfg.WorkerCount,
		"maxDepth", cfg.MaxDepth,
		"maxPages", cfg.MaxPages,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck // Best effort cleanup
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	spider, err := buildSpider(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Crawling %s...\n", cfg.RootURL)
	startTime := time.Now()

	crawlReport, err := spider.Crawl(ctx, cfg.RootURL)
	if crawlReport == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if err != nil {
		// Cancelled crawls still produce a partial report.
		logger.Warn("crawl stopped early", "error", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Crawl completed in %s: %d pages visited, %d failures\n\n",
		elapsed.Round(time.Millisecond), len(crawlReport.Visited), len(crawlReport.Failed))

	if err := outputReport(cfg, crawlReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if db != nil {
		// Saving uses a fresh context so a cancelled crawl still records
		// its partial results.
		saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		runID, err := db.SaveReport(saveCtx, crawlReport)
		if err != nil {
			logger.Error("failed to save crawl to history", "error", err)
		} else {
			logger.Info("crawl saved to history", "runID", runID)
		}
	}

	return nil
}

// buildSpider assembles the fetcher and spider from the configuration,
// applying any per-site overrides for the root host.
func buildSpider(cfg *config.Config, logger *slog.Logger) (*crawler.Spider, error) {
	root, err := urlnorm.NormalizeRoot(cfg.RootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL %q: %w", cfg.RootURL, err)
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.RequestTimeout),
		fetcher.WithRetryBudget(cfg.RetryBudget),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithUserAgent(cfg.UserAgent),
	}
	if cfg.CrawlDelay > 0 {
		fetchOpts = append(fetchOpts, fetcher.WithDelay(cfg.CrawlDelay))
	}

	maxDepth := cfg.MaxDepth
	if cfg.SiteConfigs != nil {
		siteConfig := cfg.SiteConfigs.GetSiteConfig(root.Host)
		if siteConfig.Cookie != "" {
			fetchOpts = append(fetchOpts, fetcher.WithCookie(siteConfig.Cookie))
		}
		if len(siteConfig.Headers) > 0 {
			fetchOpts = append(fetchOpts, fetcher.WithHeaders(siteConfig.Headers))
		}
		if siteConfig.Depth > 0 {
			maxDepth = siteConfig.Depth
		}
	}

	return crawler.NewSpider(fetcher.New(fetchOpts...),
		crawler.WithWorkers(cfg.WorkerCount),
		crawler.WithMaxDepth(maxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithLogger(logger),
	), nil
}

// outputReport writes the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Best effort cleanup
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(crawlReport)
	return err
}
