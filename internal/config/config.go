package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The retry and timeout defaults are deliberately conservative: they are
// tuned for ordinary sites on the public web, and every one of them can
// be overridden from the command line.
const (
	// DefaultWorkerCount is the crawl concurrency degree. Eight workers
	// hide fetch latency well without hammering a single origin.
	DefaultWorkerCount = 8

	// DefaultRequestTimeout is the per-fetch deadline. 15 seconds is
	// generous for a healthy site while keeping a crawl of a broken one
	// bounded.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultRetryBudget is how many times a transient network failure
	// is retried before the URL is recorded as failed.
	DefaultRetryBudget = 2

	// DefaultBackoffBase is the first retry delay; it doubles with each
	// subsequent attempt.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultMaxDepth of 0 means no depth ceiling: the crawl is bounded
	// by the finite same-site graph and deduplication.
	DefaultMaxDepth = 0

	// DefaultMaxPages of 0 means no page ceiling.
	DefaultMaxPages = 0

	// DefaultCrawlDelay is the politeness interval between requests.
	// Zero by default: the worker count already bounds concurrent load.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultMaxBodySize limits the response bytes read per page.
	// 5MB covers any realistic HTML document.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies webwalk in server logs.
	DefaultUserAgent = "webwalk/1.0 (+https://github.com/nao1215/webwalk)"

	// AppName is the application name used for XDG directory paths.
	AppName = "webwalk"
)

// Config holds all options for one crawl invocation.
// It is populated from CLI flags and the optional config file, validated
// once, and then treated as read-only.
type Config struct {
	// RootURL is the absolute http(s) URL the crawl starts from.
	RootURL string

	// WorkerCount is the number of concurrent crawl workers.
	WorkerCount int

	// RequestTimeout is the per-fetch deadline.
	RequestTimeout time.Duration

	// RetryBudget is the maximum number of retries for transient
	// network failures. Zero disables retries.
	RetryBudget int

	// MaxDepth is the optional traversal depth ceiling. Zero means
	// unlimited.
	MaxDepth int

	// MaxPages stops the crawl after this many fetched pages. Zero
	// means unlimited.
	MaxPages int

	// CrawlDelay is the minimum interval between requests across the
	// whole worker pool. Zero disables the politeness limiter.
	CrawlDelay time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// ConfigFilePath is an explicit config file path. Empty means
	// search .webwalk in the current directory and then the home
	// directory.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// DBDir is the directory holding the crawl history database.
	DBDir string

	// SaveToDB records the crawl run in the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		WorkerCount:    DefaultWorkerCount,
		RequestTimeout: DefaultRequestTimeout,
		RetryBudget:    DefaultRetryBudget,
		MaxDepth:       DefaultMaxDepth,
		MaxPages:       DefaultMaxPages,
		CrawlDelay:     DefaultCrawlDelay,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for webwalk, where the crawl
// history database lives.
// On Linux: ~/.local/share/webwalk
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webwalk.
// On Linux: ~/.config/webwalk
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration, failing fast before any network
// activity. It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		return ErrNoRootURL
	}
	if c.WorkerCount <= 0 {
		return ErrInvalidWorkerCount
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryBudget < 0 {
		return ErrInvalidRetryBudget
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
