package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/webwalk/internal/fetcher"
	"github.com/nao1215/webwalk/internal/model"
)

// newTestSite starts a test server serving the given path → HTML map and
// counts requests per path. Unknown paths return 404.
func newTestSite(t *testing.T, pages map[string]string) (*httptest.Server, func(path string) int) {
	t.Helper()

	var mu sync.Mutex
	hits := make(map[string]int)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return hits[path]
	}
}

func newTestSpider(opts ...Option) *Spider {
	f := fetcher.New(
		fetcher.WithTimeout(5*time.Second),
		fetcher.WithRetryBudget(0),
	)
	return NewSpider(f, opts...)
}

// visitedURLs extracts the visited URL set from a report.
func visitedURLs(report *model.CrawlReport) map[string]bool {
	urls := make(map[string]bool)
	for _, p := range report.Visited {
		urls[p.URL] = true
	}
	return urls
}

// TestCrawl tests full crawls against test sites.
func TestCrawl(t *testing.T) {
	t.Parallel()

	t.Run("visits every reachable page exactly once", func(t *testing.T) {
		t.Parallel()

		server, hits := newTestSite(t, map[string]string{
			"/":  `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`,
			"/a": `<html><body><a href="/b">b</a><a href="/c">c</a></body></html>`,
			"/b": `<html><body><a href="/a">a</a></body></html>`,
			"/c": `<html><body>leaf</body></html>`,
		})

		report, err := newTestSpider().Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Visited) != 4 {
			t.Errorf("expected 4 visited pages, got %d: %v", len(report.Visited), visitedURLs(report))
		}
		if len(report.Failed) != 0 {
			t.Errorf("expected no failures, got %v", report.Failed)
		}
		for _, path := range []string{"/", "/a", "/b", "/c"} {
			if n := hits(path); n != 1 {
				t.Errorf("path %s fetched %d times, expected exactly once", path, n)
			}
		}
		if report.TotalDiscovered != 4 {
			t.Errorf("expected 4 discovered, got %d", report.TotalDiscovered)
		}
		if report.Cancelled {
			t.Error("crawl should not be marked cancelled")
		}
	})

	t.Run("cycles terminate", func(t *testing.T) {
		t.Parallel()

		// Two pages linking only to each other.
		server, hits := newTestSite(t, map[string]string{
			"/x": `<html><body><a href="/y">y</a></body></html>`,
			"/y": `<html><body><a href="/x">x</a></body></html>`,
		})

		done := make(chan *model.CrawlReport, 1)
		go func() {
			report, _ := newTestSpider().Crawl(context.Background(), server.URL+"/x")
			done <- report
		}()

		select {
		case report := <-done:
			if len(report.Visited) != 2 {
				t.Errorf("expected 2 visited pages, got %d", len(report.Visited))
			}
			if hits("/x") != 1 || hits("/y") != 1 {
				t.Errorf("cyclic pages fetched more than once: /x=%d /y=%d", hits("/x"), hits("/y"))
			}
		case <-time.After(10 * time.Second):
			t.Fatal("crawl of cyclic graph did not terminate")
		}
	})

	t.Run("stays on the root host", func(t *testing.T) {
		t.Parallel()

		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Error("off-site URL was fetched")
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(other.Close)

		server, _ := newTestSite(t, map[string]string{
			"/": fmt.Sprintf(`<html><body>
				<a href="%s/page">offsite</a>
				<a href="/same">same</a>
			</body></html>`, other.URL),
			"/same": `<html><body></body></html>`,
		})

		report, err := newTestSpider().Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		urls := visitedURLs(report)
		for u := range urls {
			parsed, err := url.Parse(u)
			if err != nil {
				t.Fatal(err)
			}
			serverURL, _ := url.Parse(server.URL)
			if parsed.Host != serverURL.Host {
				t.Errorf("off-site URL %s appears in report", u)
			}
		}
		if len(report.Visited) != 2 {
			t.Errorf("expected 2 visited pages, got %d", len(report.Visited))
		}
	})

	t.Run("records http errors as failures and continues", func(t *testing.T) {
		t.Parallel()

		server, _ := newTestSite(t, map[string]string{
			"/":   `<html><body><a href="/gone">gone</a><a href="/ok">ok</a></body></html>`,
			"/ok": `<html><body></body></html>`,
		})

		report, err := newTestSpider().Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Visited) != 2 {
			t.Errorf("expected 2 visited pages, got %d", len(report.Visited))
		}
		if len(report.Failed) != 1 {
			t.Fatalf("expected 1 failure, got %v", report.Failed)
		}
		failure := report.Failed[0]
		if failure.Kind != model.FailureHTTP || failure.StatusCode != http.StatusNotFound {
			t.Errorf("unexpected failure record: %+v", failure)
		}

		// Dedup invariant: no URL in both lists.
		urls := visitedURLs(report)
		if urls[failure.URL] {
			t.Errorf("URL %s recorded as both visited and failed", failure.URL)
		}
	})

	t.Run("does not extract links from error pages", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		fetched := make(map[string]bool)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			fetched[r.URL.Path] = true
			mu.Unlock()

			if r.URL.Path == "/" {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`<html><body><a href="/hidden">hidden</a></body></html>`))
				return
			}
			w.Header().Set("Content-Type", "text/html")
		}))
		t.Cleanup(server.Close)

		report, err := newTestSpider().Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		mu.Lock()
		hiddenFetched := fetched["/hidden"]
		mu.Unlock()
		if hiddenFetched {
			t.Error("links from a 5xx page were followed")
		}
		if len(report.Failed) != 1 || report.Failed[0].Kind != model.FailureHTTP {
			t.Errorf("expected single http failure, got %v", report.Failed)
		}
	})

	t.Run("non-HTML pages are visited but not parsed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(`<html><body><a href="/data.json">data</a></body></html>`))
			case "/data.json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"href": "/never"}`))
			default:
				t.Errorf("unexpected fetch of %s", r.URL.Path)
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(server.Close)

		report, err := newTestSpider().Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(report.Visited) != 2 {
			t.Errorf("expected 2 visited pages, got %d", len(report.Visited))
		}
	})

	t.Run("honors depth limit without claiming", func(t *testing.T) {
		t.Parallel()

		server, hits := newTestSite(t, map[string]string{
			"/":   `<html><body><a href="/d1">1</a></body></html>`,
			"/d1": `<html><body><a href="/d2">2</a></body></html>`,
			"/d2": `<html><body><a href="/d3">3</a></body></html>`,
			"/d3": `<html><body></body></html>`,
		})

		report, err := newTestSpider(WithMaxDepth(1)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Visited) != 2 {
			t.Errorf("expected root + depth-1 page, got %d visited", len(report.Visited))
		}
		if hits("/d2") != 0 {
			t.Error("page beyond depth limit was fetched")
		}

		// The over-depth link still appears on the page record.
		for _, p := range report.Visited {
			if p.Depth == 1 && len(p.Links) != 1 {
				t.Errorf("expected depth-1 page to list its link, got %v", p.Links)
			}
		}
	})

	t.Run("honors max pages", func(t *testing.T) {
		t.Parallel()

		pages := make(map[string]string)
		pages["/"] = `<html><body>` +
			`<a href="/p0">0</a><a href="/p1">1</a><a href="/p2">2</a>` +
			`<a href="/p3">3</a><a href="/p4">4</a></body></html>`
		for i := 0; i < 5; i++ {
			pages[fmt.Sprintf("/p%d", i)] = `<html><body></body></html>`
		}
		server, _ := newTestSite(t, pages)

		report, err := newTestSpider(WithMaxPages(2), WithWorkers(1)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(report.Visited) > 2 {
			t.Errorf("expected at most 2 visited pages, got %d", len(report.Visited))
		}
	})

	t.Run("unreachable root yields a failed report not an error", func(t *testing.T) {
		t.Parallel()

		// Reserved TLD guarantees resolution failure.
		report, err := newTestSpider().Crawl(context.Background(), "http://unreachable.invalid/")
		if err != nil {
			t.Fatalf("expected report for unreachable root, got error: %v", err)
		}

		if len(report.Visited) != 0 {
			t.Errorf("expected no visited pages, got %d", len(report.Visited))
		}
		if len(report.Failed) != 1 || report.Failed[0].Kind != model.FailureNetwork {
			t.Fatalf("expected single network failure, got %v", report.Failed)
		}
		if report.TotalDiscovered != 1 {
			t.Errorf("expected root counted as discovered, got %d", report.TotalDiscovered)
		}
	})

	t.Run("malformed root is a configuration error", func(t *testing.T) {
		t.Parallel()

		s := newTestSpider()
		for _, root := range []string{"not a url", "ftp://example.com/", "http://"} {
			report, err := s.Crawl(context.Background(), root)
			if err == nil {
				t.Errorf("Crawl(%q): expected configuration error", root)
			}
			if report != nil {
				t.Errorf("Crawl(%q): expected nil report, got %+v", root, report)
			}
		}
	})

	t.Run("cancellation returns partial report", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				<-release // hold workers so cancellation lands mid-crawl
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><a href="/a">a</a><a href="/b">b</a><a href="/c">c</a></body></html>`))
		}))
		t.Cleanup(server.Close)
		t.Cleanup(func() { close(release) })

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		report, err := newTestSpider(WithWorkers(2)).Crawl(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if report == nil {
			t.Fatal("expected partial report on cancellation")
		}
		if !report.Cancelled {
			t.Error("expected report marked cancelled")
		}
	})
}

// TestSpiderState tests the controller state machine.
func TestSpiderState(t *testing.T) {
	t.Parallel()

	t.Run("starts in init and ends in done", func(t *testing.T) {
		t.Parallel()

		server, _ := newTestSite(t, map[string]string{
			"/": `<html><body></body></html>`,
		})

		s := newTestSpider()
		if s.State() != StateInit {
			t.Errorf("expected StateInit before crawl, got %s", s.State())
		}

		if _, err := s.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if s.State() != StateDone {
			t.Errorf("expected StateDone after crawl, got %s", s.State())
		}
	})

	t.Run("state names", func(t *testing.T) {
		t.Parallel()

		tests := map[State]string{
			StateInit:     "init",
			StateRunning:  "running",
			StateDraining: "draining",
			StateDone:     "done",
			State(42):     "unknown",
		}
		for state, want := range tests {
			if got := state.String(); got != want {
				t.Errorf("State(%d).String() = %q, expected %q", state, got, want)
			}
		}
	})
}

// TestPageFunc tests the streaming page callback.
func TestPageFunc(t *testing.T) {
	t.Parallel()

	server, _ := newTestSite(t, map[string]string{
		"/":  `<html><head><title>Root</title></head><body><a href="/a">a</a></body></html>`,
		"/a": `<html><head><title>A</title></head><body></body></html>`,
	})

	var mu sync.Mutex
	var titles []string
	s := newTestSpider(WithPageFunc(func(p *model.Page) {
		mu.Lock()
		titles = append(titles, p.Title)
		mu.Unlock()
	}))

	if _, err := s.Crawl(context.Background(), server.URL); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 2 {
		t.Errorf("expected callback for each page, got %v", titles)
	}
}
