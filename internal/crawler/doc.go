// Package crawler implements the crawl traversal engine.
//
// # Architecture
//
// The Spider coordinates a fixed pool of workers around two shared
// structures owned by the frontier package: the work queue and the
// visited-claim set. Each worker loops dequeue → fetch → extract →
// filter → enqueue, and streams its results to a single collector
// goroutine that owns the report. No other shared mutable state exists.
//
// # Completion
//
// An empty queue alone does not mean the crawl is done: a worker mid-fetch
// may still enqueue new URLs. The frontier therefore counts in-flight
// records, and workers only exit once the queue is empty AND nothing is in
// flight. A monitor goroutine observes the same counters to expose the
// Draining state.
//
// # Failure isolation
//
// Only an invalid root URL aborts a crawl. Every per-URL failure — network
// errors after retries, HTTP error statuses, unparsable markup — is
// recorded in the report and the crawl continues.
package crawler
