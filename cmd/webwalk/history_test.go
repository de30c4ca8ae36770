package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webwalk/internal/database"
	"github.com/nao1215/webwalk/internal/model"
)

// newHistoryDB creates a temp database preloaded with one run.
func newHistoryDB(t *testing.T) (*database.CrawlDB, int64) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	runID, err := db.SaveReport(context.Background(), &model.CrawlReport{
		Root:       "http://example.com/",
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Second),
		Visited: []model.Page{
			{URL: "http://example.com/", StatusCode: 200, Title: "Home"},
		},
		Failed: []model.Failure{
			{URL: "http://example.com/broken", Kind: model.FailureHTTP, StatusCode: 404, Detail: "HTTP 404"},
		},
		TotalDiscovered: 2,
	})
	if err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}

	return db, runID
}

// outBuffer returns a cobra command whose output is captured in buf.
func outBuffer() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("expected use 'history', got %q", cmd.Use)
		}
	})

	t.Run("has limit flag with default", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
		if flag.DefValue != "20" {
			t.Errorf("expected default '20', got %q", flag.DefValue)
		}
	})

	t.Run("has run flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("run") == nil {
			t.Error("expected run flag")
		}
	})
}

// TestListRuns tests the run listing output.
func TestListRuns(t *testing.T) {
	t.Parallel()

	t.Run("text output lists the run", func(t *testing.T) {
		t.Parallel()

		db, _ := newHistoryDB(t)
		cmd, buf := outBuffer()

		if err := listRuns(context.Background(), cmd, db, 20, false); err != nil {
			t.Fatalf("listRuns() error = %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "http://example.com/") {
			t.Errorf("expected run root in output: %s", output)
		}
		if !strings.Contains(output, "2025-06-01") {
			t.Errorf("expected run date in output: %s", output)
		}
	})

	t.Run("json output decodes to runs", func(t *testing.T) {
		t.Parallel()

		db, _ := newHistoryDB(t)
		cmd, buf := outBuffer()

		if err := listRuns(context.Background(), cmd, db, 20, true); err != nil {
			t.Fatalf("listRuns() error = %v", err)
		}

		var runs []database.Run
		if err := json.Unmarshal(buf.Bytes(), &runs); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("decoded %d runs, want 1", len(runs))
		}
	})
}

// TestShowRun tests the single-run detail output.
func TestShowRun(t *testing.T) {
	t.Parallel()

	t.Run("prints pages and failures", func(t *testing.T) {
		t.Parallel()

		db, runID := newHistoryDB(t)
		cmd, buf := outBuffer()

		if err := showRun(context.Background(), cmd, db, runID, false); err != nil {
			t.Fatalf("showRun() error = %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[200] http://example.com/") {
			t.Errorf("expected visited page in output: %s", output)
		}
		if !strings.Contains(output, "[http] http://example.com/broken") {
			t.Errorf("expected failure in output: %s", output)
		}
	})

	t.Run("unknown run errors", func(t *testing.T) {
		t.Parallel()

		db, _ := newHistoryDB(t)
		cmd, _ := outBuffer()

		if err := showRun(context.Background(), cmd, db, 9999, false); err == nil {
			t.Error("showRun() = nil, want error for unknown run")
		}
	})
}
