// Package fetcher performs the network retrievals for a crawl.
//
// A Fetcher wraps an http.Client with a per-request deadline, a bounded
// retry budget with exponential backoff for transient network failures,
// a response body size limit, and an optional shared politeness limiter.
// HTTP error statuses are never retried; only the network layer is
// considered transient.
//
// Fetch never returns an error: every outcome, including exhausted
// retries, is classified into a Result so that a single bad URL cannot
// abort a crawl.
package fetcher
