// Package extractor pulls candidate link URLs out of fetched pages.
//
// The contract is capability-shaped on purpose: bytes plus a content type
// and a base URL go in, absolute candidate URL strings come out. Nothing
// outside this package depends on the parser in use, so it can be swapped
// without touching the crawl engine.
//
// Extraction never fails a crawl. Non-HTML content yields no links, and
// malformed markup yields whatever links could be recovered.
package extractor
