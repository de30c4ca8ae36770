package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Sentinel errors let callers branch with errors.Is while keeping the
// messages readable as-is on the command line.
var (
	// ErrNoRootURL is returned when no crawl root URL was supplied.
	ErrNoRootURL = errors.New("no root URL specified: provide an absolute http(s) URL")

	// ErrInvalidWorkerCount is returned when the worker count is not positive.
	ErrInvalidWorkerCount = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRetryBudget is returned when the retry budget is negative.
	// Zero is valid and disables retries.
	ErrInvalidRetryBudget = errors.New("invalid retry budget: must be non-negative")

	// ErrInvalidMaxDepth is returned when the depth ceiling is negative.
	// Zero is valid and means unlimited.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page ceiling is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
