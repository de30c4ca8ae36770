package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webwalk/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeVisited(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Webwalk Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root URL", "`" + report.Root + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the crawl outcome summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	networkFailures, httpFailures := countFailures(report)

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🟢 Visited", strconv.Itoa(len(report.Visited))},
			{"🔴 HTTP errors", strconv.Itoa(httpFailures)},
			{"🟠 Network failures", strconv.Itoa(networkFailures)},
			{"**Discovered**", "**" + strconv.Itoa(report.TotalDiscovered) + "**"},
		},
	})
	md.PlainText("")

	if len(report.Visited) > 0 || len(report.Failed) > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Crawl Outcome Distribution"),
		piechart.WithShowData(true),
	)

	networkFailures, httpFailures := countFailures(report)

	if len(report.Visited) > 0 {
		chart.LabelAndIntValue("Visited", uint64(len(report.Visited)))
	}
	if httpFailures > 0 {
		chart.LabelAndIntValue("HTTP errors", uint64(httpFailures))
	}
	if networkFailures > 0 {
		chart.LabelAndIntValue("Network failures", uint64(networkFailures))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	networkFailures, httpFailures := countFailures(report)

	switch {
	case report.Cancelled:
		md.Warningf(
			"The crawl was cancelled before completing; %d page(s) were captured.",
			len(report.Visited),
		)
	case networkFailures > 0:
		md.Importantf(
			"%d URL(s) could not be reached due to network failures.",
			networkFailures,
		)
	case httpFailures > 0:
		md.Notef(
			"%d URL(s) returned HTTP error responses.",
			httpFailures,
		)
	default:
		md.Tip("Every discovered URL was fetched successfully.")
	}
	md.PlainText("")
}

// writeVisited writes the visited pages section.
func (w *MarkdownWriter) writeVisited(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Visited Pages")
	md.PlainText("")

	if len(report.Visited) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	pages := report.SortedVisited()
	rows := make([][]string, len(pages))
	for i, page := range pages {
		title := page.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			"`" + page.URL + "`",
			strconv.Itoa(page.StatusCode),
			truncateString(title, 50),
			strconv.Itoa(page.Depth),
			strconv.Itoa(len(page.Links)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Title", "Depth", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failed URLs section.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Failures")
	md.PlainText("")

	if len(report.Failed) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	failures := report.SortedFailed()
	rows := make([][]string, len(failures))
	for i, f := range failures {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		detail := f.Detail
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{
			"`" + f.URL + "`",
			string(f.Kind),
			status,
			truncateString(detail, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Status", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webwalk](https://github.com/nao1215/webwalk)*")
}

// countFailures returns the network and HTTP failure counts.
func countFailures(report *model.CrawlReport) (network, http int) {
	for _, f := range report.Failed {
		if f.Kind == model.FailureNetwork {
			network++
		} else {
			http++
		}
	}
	return network, http
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
