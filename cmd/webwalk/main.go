// Package main provides the entry point for the webwalk CLI.
//
// Webwalk is a concurrent same-site web crawler. Starting from a root
// URL it discovers every reachable page on the same host and produces
// a report of visited pages, their titles, and the URLs that failed.
//
// Usage:
//
//	webwalk crawl <url>
//	webwalk history
//
// See --help for all available options.
package main

// main is the entry point for webwalk.
func main() {
	Execute()
}
