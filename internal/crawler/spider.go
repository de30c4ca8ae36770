package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webwalk/internal/extractor"
	"github.com/nao1215/webwalk/internal/fetcher"
	"github.com/nao1215/webwalk/internal/frontier"
	"github.com/nao1215/webwalk/internal/model"
	"github.com/nao1215/webwalk/internal/urlnorm"
)

// State is the crawl controller state.
type State int32

const (
	// StateInit means the crawl has not started yet.
	StateInit State = iota

	// StateRunning means workers are processing the frontier.
	StateRunning

	// StateDraining means the queue was observed empty while work is
	// still in flight; new URLs may yet appear.
	StateDraining

	// StateDone is terminal: workers stopped, report finalized.
	StateDone
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Default crawl settings.
const (
	// DefaultWorkers is the worker pool size. Small enough to be polite
	// to a single site, large enough to hide fetch latency.
	DefaultWorkers = 8

	// monitorInterval is how often the state monitor samples the
	// frontier.
	monitorInterval = 250 * time.Millisecond
)

// Spider is the crawl controller: it seeds the frontier, runs the worker
// pool, detects completion, and assembles the report.
//
// A Spider is single-use: create one per crawl.
type Spider struct {
	fetcher  *fetcher.Fetcher
	workers  int
	maxDepth int
	maxPages int
	logger   *slog.Logger
	pageFunc func(*model.Page)

	state atomic.Int32
	pages atomic.Int64
}

// Option configures a Spider.
type Option func(*Spider)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxDepth limits how many links deep the crawl follows.
// Zero means unlimited: the crawl is bounded by the finite same-site
// graph and deduplication instead. Candidates beyond the limit are
// discarded without claiming them.
func WithMaxDepth(depth int) Option {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages stops the crawl after this many pages have been fetched.
// Zero means unlimited. This is a safety valve for unexpectedly large or
// generated sites.
func WithMaxPages(n int) Option {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithPageFunc registers a callback invoked for every page as soon as its
// fetch completes, before the crawl finishes. The callback runs on the
// collector goroutine, so it sees pages one at a time.
func WithPageFunc(fn func(*model.Page)) Option {
	return func(s *Spider) {
		s.pageFunc = fn
	}
}

// NewSpider creates a Spider that fetches with f.
func NewSpider(f *fetcher.Fetcher, opts ...Option) *Spider {
	s := &Spider{
		fetcher: f,
		workers: DefaultWorkers,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// State returns the current controller state.
func (s *Spider) State() State {
	return State(s.state.Load())
}

// workerResult carries one outcome from a worker to the collector.
// Exactly one of page and failure is set.
type workerResult struct {
	page    *model.Page
	failure *model.Failure
}

// Crawl visits every reachable same-site page starting from rootURL and
// returns the report. An invalid root is a configuration error returned
// before any network activity; all per-URL failures end up inside the
// report instead.
//
// Cancelling ctx stops the crawl between fetches; in-flight fetches run
// to completion and the partial report is returned along with ctx's
// error.
func (s *Spider) Crawl(ctx context.Context, rootURL string) (*model.CrawlReport, error) {
	root, err := urlnorm.NormalizeRoot(rootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL %q: %w", rootURL, err)
	}

	report := model.NewCrawlReport(root.String())
	fr := frontier.New()
	fr.Enqueue(frontier.Record{URL: root.String(), Depth: 0})

	s.logger.Info("starting crawl",
		"root", root.String(),
		"workers", s.workers,
		"maxDepth", s.maxDepth,
	)

	s.state.Store(int32(StateRunning))

	// External cancellation: close the frontier so blocked workers wake.
	// The fetcher honors ctx itself, so in-flight requests also unwind.
	cancelDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fr.Close()
		case <-cancelDone:
		}
	}()

	// The collector is the only goroutine that touches the report.
	results := make(chan workerResult, s.workers)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			if res.page != nil {
				report.Visited = append(report.Visited, *res.page)
				if s.pageFunc != nil {
					s.pageFunc(res.page)
				}
				continue
			}
			report.Failed = append(report.Failed, *res.failure)
		}
	}()

	monitorDone := make(chan struct{})
	go s.monitor(fr, monitorDone)

	g := &errgroup.Group{}
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			s.runWorker(ctx, root, fr, results)
			return nil
		})
	}
	_ = g.Wait()

	close(monitorDone)
	close(cancelDone)
	close(results)
	<-collectorDone

	stats := fr.Stats()
	report.TotalDiscovered = stats.Claimed
	report.FinishedAt = time.Now()
	report.Cancelled = ctx.Err() != nil
	s.state.Store(int32(StateDone))

	s.logger.Info("crawl finished",
		"visited", len(report.Visited),
		"failed", len(report.Failed),
		"discovered", report.TotalDiscovered,
		"duration", report.Duration(),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// runWorker is one worker's loop: it pulls records until the frontier
// reports quiescence or shutdown.
func (s *Spider) runWorker(ctx context.Context, root *url.URL, fr *frontier.Frontier, results chan<- workerResult) {
	for {
		rec, ok := fr.Dequeue()
		if !ok {
			return
		}

		s.process(ctx, rec, root, fr, results)
		fr.Done()

		if s.maxPages > 0 && s.pages.Load() >= int64(s.maxPages) {
			fr.Close()
			return
		}
	}
}

// process fetches one record and reports its outcome. Failures never
// propagate: everything becomes a workerResult.
func (s *Spider) process(ctx context.Context, rec frontier.Record, root *url.URL, fr *frontier.Frontier, results chan<- workerResult) {
	s.logger.Debug("fetching", "url", rec.URL, "depth", rec.Depth)

	res := s.fetcher.Fetch(ctx, rec.URL)

	switch res.Class {
	case fetcher.Success:
		page := &model.Page{
			URL:         rec.URL,
			StatusCode:  res.StatusCode,
			ContentType: res.ContentType,
			Depth:       rec.Depth,
			Origin:      rec.Origin,
		}

		if fetcher.IsHTML(res.ContentType) {
			base, err := url.Parse(rec.URL)
			if err == nil {
				extracted := extractor.Extract(res.Body, res.ContentType, base)
				page.Title = extracted.Title
				page.Links = s.enqueueLinks(extracted.Links, rec, root, fr)
			}
		}

		s.pages.Add(1)
		results <- workerResult{page: page}

	case fetcher.ClientError, fetcher.ServerError:
		s.logger.Debug("http error", "url", rec.URL, "status", res.StatusCode)
		results <- workerResult{failure: &model.Failure{
			URL:        rec.URL,
			Kind:       model.FailureHTTP,
			StatusCode: res.StatusCode,
			Detail:     fmt.Sprintf("HTTP %d", res.StatusCode),
			Depth:      rec.Depth,
			Origin:     rec.Origin,
		}}

	case fetcher.NetworkFailure:
		s.logger.Debug("network failure",
			"url", rec.URL,
			"attempts", res.Attempts,
			"error", res.Err,
		)
		detail := "network failure"
		if res.Err != nil {
			detail = res.Err.Error()
		}
		results <- workerResult{failure: &model.Failure{
			URL:    rec.URL,
			Kind:   model.FailureNetwork,
			Detail: detail,
			Depth:  rec.Depth,
			Origin: rec.Origin,
		}}
	}
}

// enqueueLinks normalizes and filters the extracted candidates, enqueues
// the survivors at depth+1, and returns the same-site links for the page
// record. Off-site and malformed candidates are dropped silently;
// over-depth candidates are dropped before the dedup claim so a later,
// shallower discovery could still fetch them.
func (s *Spider) enqueueLinks(candidates []string, rec frontier.Record, root *url.URL, fr *frontier.Frontier) []string {
	var sameSite []string
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		normalized, err := urlnorm.Normalize(candidate, nil)
		if err != nil {
			continue
		}
		if !urlnorm.SameHost(normalized, root.Host) {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		sameSite = append(sameSite, normalized)

		if s.maxDepth > 0 && rec.Depth+1 > s.maxDepth {
			continue
		}
		fr.Enqueue(frontier.Record{
			URL:    normalized,
			Depth:  rec.Depth + 1,
			Origin: rec.URL,
		})
	}
	return sameSite
}

// monitor samples the frontier and flips the controller between Running
// and Draining until the crawl ends. Draining is observational: the
// frontier's own counters decide completion.
func (s *Spider) monitor(fr *frontier.Frontier, done <-chan struct{}) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := fr.Stats()
			switch {
			case stats.Queued == 0 && stats.InFlight > 0:
				s.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
			case stats.Queued > 0:
				s.state.CompareAndSwap(int32(StateDraining), int32(StateRunning))
			}
		}
	}
}
