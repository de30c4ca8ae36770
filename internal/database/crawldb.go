package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webwalk/internal/model"
)

// DBFileName is the crawl history database file name.
const DBFileName = "webwalk.db"

// CrawlDB provides SQLite-based storage for crawl run history.
//
// Design decision: one database file holds all runs for all sites
// rather than one file per site. Cross-site history queries stay cheap
// and there is a single artifact to back up.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses file-mode query parameters: mode=rw
	// refuses to create a missing file, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection
	// avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one row per completed crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total_discovered INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store successful fetches belonging to a run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_type TEXT,
		title TEXT,
		depth INTEGER NOT NULL,
		origin TEXT,
		links TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Failures store URLs that could not be visited during a run
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status_code INTEGER,
		detail TEXT,
		depth INTEGER NOT NULL,
		origin TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run summarizes one stored crawl run.
type Run struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Root is the normalized root URL the crawl started from.
	Root string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// FinishedAt is when the crawl finished.
	FinishedAt time.Time

	// TotalDiscovered is the number of unique URLs admitted to the crawl.
	TotalDiscovered int

	// Visited is the number of successfully fetched pages.
	Visited int

	// Failed is the number of URLs that could not be visited.
	Failed int

	// Cancelled reports whether the crawl was stopped early.
	Cancelled bool
}

// SaveReport stores a completed crawl report as one run with its pages
// and failures, all within a single transaction. It returns the run ID.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root, started_at, finished_at, total_discovered, visited, failed, cancelled)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.Root,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.TotalDiscovered,
		len(report.Visited),
		len(report.Failed),
		boolToInt(report.Cancelled),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, status_code, content_type, title, depth, origin, links)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close() //nolint:errcheck // Close error on read-only teardown is ignorable

	for i := range report.Visited {
		page := &report.Visited[i]

		linksJSON, err := json.Marshal(page.Links)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize links for %s: %w", page.URL, err)
		}

		if _, err := pageStmt.ExecContext(ctx,
			runID,
			page.URL,
			page.StatusCode,
			page.ContentType,
			page.Title,
			page.Depth,
			page.Origin,
			string(linksJSON),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", page.URL, err)
		}
	}

	failStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO failures (run_id, url, kind, status_code, detail, depth, origin)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer failStmt.Close() //nolint:errcheck // Close error on read-only teardown is ignorable

	for i := range report.Failed {
		failure := &report.Failed[i]
		if _, err := failStmt.ExecContext(ctx,
			runID,
			failure.URL,
			string(failure.Kind),
			failure.StatusCode,
			failure.Detail,
			failure.Depth,
			failure.Origin,
		); err != nil {
			return 0, fmt.Errorf("failed to insert failure %s: %w", failure.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RecentRuns returns the most recent crawl runs, newest first.
// A limit of 0 or less returns all runs.
func (cdb *CrawlDB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, root, started_at, finished_at, total_discovered, visited, failed, cancelled
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt string
		var cancelled int

		if err := rows.Scan(
			&run.ID,
			&run.Root,
			&startedAt,
			&finishedAt,
			&run.TotalDiscovered,
			&run.Visited,
			&run.Failed,
			&cancelled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = parseTimestamp(startedAt)
		run.FinishedAt = parseTimestamp(finishedAt)
		run.Cancelled = cancelled != 0
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun retrieves a single run by ID. It returns nil when no run with
// that ID exists.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `
	SELECT id, root, started_at, finished_at, total_discovered, visited, failed, cancelled
	FROM runs
	WHERE id = ?
	`

	var run Run
	var startedAt, finishedAt string
	var cancelled int

	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Root,
		&startedAt,
		&finishedAt,
		&run.TotalDiscovered,
		&run.Visited,
		&run.Failed,
		&cancelled,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Cancelled = cancelled != 0
	return &run, nil
}

// RunPages retrieves the pages stored for a run, ordered by URL.
func (cdb *CrawlDB) RunPages(ctx context.Context, runID int64) ([]model.Page, error) {
	query := `
	SELECT url, status_code, content_type, title, depth, origin, links
	FROM pages
	WHERE run_id = ?
	ORDER BY url
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var page model.Page
		var contentType, title, origin, linksJSON sql.NullString

		if err := rows.Scan(
			&page.URL,
			&page.StatusCode,
			&contentType,
			&title,
			&page.Depth,
			&origin,
			&linksJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		page.ContentType = contentType.String
		page.Title = title.String
		page.Origin = origin.String
		if linksJSON.Valid && linksJSON.String != "" {
			if err := json.Unmarshal([]byte(linksJSON.String), &page.Links); err != nil {
				return nil, fmt.Errorf("failed to parse links for %s: %w", page.URL, err)
			}
		}

		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// RunFailures retrieves the failures stored for a run, ordered by URL.
func (cdb *CrawlDB) RunFailures(ctx context.Context, runID int64) ([]model.Failure, error) {
	query := `
	SELECT url, kind, status_code, detail, depth, origin
	FROM failures
	WHERE run_id = ?
	ORDER BY url
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []model.Failure
	for rows.Next() {
		var failure model.Failure
		var kind string
		var statusCode sql.NullInt64
		var detail, origin sql.NullString

		if err := rows.Scan(
			&failure.URL,
			&kind,
			&statusCode,
			&detail,
			&failure.Depth,
			&origin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}

		failure.Kind = model.FailureKind(kind)
		failure.StatusCode = int(statusCode.Int64)
		failure.Detail = detail.String
		failure.Origin = origin.String
		failures = append(failures, failure)
	}

	return failures, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
