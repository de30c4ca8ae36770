// Package urlnorm canonicalizes URLs so that equivalent addresses compare
// equal, and decides whether a candidate URL belongs to the crawled site.
//
// Normalization is the foundation of crawl deduplication: the visited set
// stores normalized URLs only, so http://EX.com/a#x and http://ex.com:80/a
// must reduce to the same string before they reach it.
package urlnorm
