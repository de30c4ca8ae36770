// Package log provides structured logging with credential redaction.
//
// Webwalk sends per-site cookies and headers from the configuration
// file with its requests, and crawled URLs may embed userinfo
// credentials. The RedactHandler wraps any slog.Handler and masks both
// before a record reaches the output, so verbose crawl logs can be
// shared without scrubbing.
package log
