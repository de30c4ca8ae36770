package model

import (
	"sort"
	"time"
)

// FailureKind categorizes why a URL could not be visited.
type FailureKind string

const (
	// FailureNetwork means no HTTP response was obtained after retries:
	// DNS failure, refused connection, reset, or timeout.
	FailureNetwork FailureKind = "network"

	// FailureHTTP means the server answered with a non-success status.
	FailureHTTP FailureKind = "http"
)

// Failure records one URL that was claimed but could not be visited.
type Failure struct {
	// URL is the normalized URL that failed.
	URL string `json:"url"`

	// Kind is the failure category.
	Kind FailureKind `json:"kind"`

	// StatusCode is the HTTP status for FailureHTTP, 0 otherwise.
	StatusCode int `json:"status_code,omitempty"`

	// Detail is a human-readable description of the failure.
	Detail string `json:"detail,omitempty"`

	// Depth is the link distance from the crawl root.
	Depth int `json:"depth"`

	// Origin is the page the URL was discovered on, empty for the root.
	Origin string `json:"origin,omitempty"`
}

// CrawlReport is the final outcome of one crawl.
//
// The report is owned exclusively by the crawler's collector goroutine
// until the crawl is done; afterwards it is immutable. A URL appears at
// most once across Visited and Failed, never in both.
type CrawlReport struct {
	// Root is the normalized root URL the crawl started from.
	Root string `json:"root"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// Visited lists successfully fetched pages in completion order.
	Visited []Page `json:"visited"`

	// Failed lists URLs that could not be visited, in completion order.
	Failed []Failure `json:"failed"`

	// TotalDiscovered is the number of unique same-site URLs admitted to
	// the frontier, including those still unprocessed if the crawl was
	// cancelled.
	TotalDiscovered int `json:"total_discovered"`

	// Cancelled reports whether the crawl was stopped before draining.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewCrawlReport creates an empty report for the given root URL.
func NewCrawlReport(root string) *CrawlReport {
	return &CrawlReport{
		Root:      root,
		StartedAt: time.Now(),
		Visited:   make([]Page, 0),
		Failed:    make([]Failure, 0),
	}
}

// Duration returns how long the crawl ran.
func (r *CrawlReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SortedVisited returns the visited pages ordered by URL.
// Completion order is nondeterministic under concurrency; writers use
// this for stable output.
func (r *CrawlReport) SortedVisited() []Page {
	pages := make([]Page, len(r.Visited))
	copy(pages, r.Visited)
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	return pages
}

// SortedFailed returns the failures ordered by URL.
func (r *CrawlReport) SortedFailed() []Failure {
	failed := make([]Failure, len(r.Failed))
	copy(failed, r.Failed)
	sort.Slice(failed, func(i, j int) bool { return failed[i].URL < failed[j].URL })
	return failed
}
