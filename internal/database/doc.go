// Package database provides SQLite-based persistence for crawl history.
//
// The database stores completed crawl runs so that crawls of the same
// site can be compared over time: each run keeps the pages visited, the
// URLs that failed, and summary counts. The database lives in the XDG
// data directory by default and uses the pure-Go modernc.org/sqlite
// driver, so webwalk builds without cgo.
package database
