package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webwalk/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showLinks includes the outgoing links of each page in the output.
	showLinks bool

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowLinks includes each page's outgoing links in the output.
func WithShowLinks(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showLinks = show
	}
}

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showLinks:  false,
		showEmpty:  false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl report in human-readable format.
// Pages and failures are sorted by URL for stable output.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeVisited(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          WEBWALK CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Root URL:        %s\n", report.Root))
	sb.WriteString(fmt.Sprintf("Started:         %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:        %s\n", report.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Pages Visited:   %d\n", len(report.Visited)))
	sb.WriteString(fmt.Sprintf("Failures:        %d\n", len(report.Failed)))
	sb.WriteString(fmt.Sprintf("URLs Discovered: %d\n", report.TotalDiscovered))

	if report.Cancelled {
		sb.WriteString("Status:          CANCELLED (partial results)\n")
	} else {
		sb.WriteString("Status:          Complete\n")
	}

	sb.WriteString("\n")
}

// writeVisited writes the visited pages section.
func (w *SimpleWriter) writeVisited(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Visited) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VISITED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Visited) == 0 {
		sb.WriteString("  No pages visited\n\n")
		return
	}

	for _, page := range report.SortedVisited() {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", page.StatusCode, page.URL))
		if page.Title != "" {
			sb.WriteString(fmt.Sprintf("      Title: %s\n", page.Title))
		}
		sb.WriteString(fmt.Sprintf("      Depth: %d", page.Depth))
		if page.Origin != "" {
			sb.WriteString(fmt.Sprintf("  From: %s", page.Origin))
		}
		sb.WriteString("\n")
		if w.showLinks && len(page.Links) > 0 {
			sb.WriteString(fmt.Sprintf("      Links: %d\n", len(page.Links)))
			for _, link := range page.Links {
				sb.WriteString(fmt.Sprintf("        -> %s\n", link))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes the failed URLs section.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Failed) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Failed) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	for _, failure := range report.SortedFailed() {
		indicator := "NET"
		if failure.Kind == model.FailureHTTP {
			indicator = fmt.Sprintf("%d", failure.StatusCode)
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", indicator, failure.URL))
		if failure.Detail != "" {
			sb.WriteString(fmt.Sprintf("      Detail: %s\n", failure.Detail))
		}
		if failure.Origin != "" {
			sb.WriteString(fmt.Sprintf("      From: %s\n", failure.Origin))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webwalk\n")
	sb.WriteString("https://github.com/nao1215/webwalk\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
