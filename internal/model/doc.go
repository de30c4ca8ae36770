// Package model defines the data types shared across the crawl engine:
// visited pages, per-URL failures, and the final crawl report.
//
// The types here are plain data with JSON tags; all mutation policy
// (who may append what, and when) lives with the crawler's collector.
package model
