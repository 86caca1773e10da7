package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mai-automation/linkstatus/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing.
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

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	summary := model.NewSummary(report)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, summary)
	w.writeSubfolders(md, summary)
	w.writeRecords(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Link Status Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Seed URL", "`" + report.StartURL + "`"},
			{"Audit Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(report.PagesCrawled)},
			{"Duration", report.Duration.String()},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the run-state indicator for the header table.
func (w *MarkdownWriter) statusText(report *model.AuditReport) string {
	if report.TimedOut {
		return "⚠️ Cancelled (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the response-code breakdown with a pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	rows := [][]string{
		{"Links checked", strconv.Itoa(summary.TotalLinks)},
		{"Healthy (200 OK)", strconv.Itoa(summary.Skipped)},
		{"Reported", strconv.Itoa(summary.Reported)},
	}
	for _, cc := range summary.ByCode {
		rows = append(rows, []string{"`" + cc.Code + "`", strconv.Itoa(cc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Reported > 0 {
		w.writePieChart(md, summary)
		md.Warningf("%d link(s) did not resolve with 200 OK and need review.", summary.Reported)
	} else {
		md.Tip("All checked links resolved with 200 OK.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the response-code distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Response Code Distribution"),
		piechart.WithShowData(true),
	)

	for _, cc := range summary.ByCode {
		chart.LabelAndIntValue(cc.Code, uint64(cc.Count))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSubfolders writes the per-subfolder breakdown of failing URLs.
func (w *MarkdownWriter) writeSubfolders(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.BySubfolder) == 0 {
		return
	}

	md.H2("Failures by Section")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.BySubfolder))
	for _, sc := range summary.BySubfolder {
		folder := sc.Subfolder
		if folder == "" {
			folder = "(root)"
		}
		rows = append(rows, []string{"`" + folder + "`", strconv.Itoa(sc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"(Sub)Directory", "Number of URLs"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRecords writes the full result table.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Records) == 0 {
		md.PlainText("No broken or redirected links found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Records))
	for i, rec := range report.Records {
		anchor := rec.AnchorText
		if anchor == "" {
			anchor = "-"
		}
		rows[i] = []string{
			truncate(rec.SourcePage, 60),
			truncate(anchor, 40),
			truncate(rec.URL, 60),
			rec.ResponseCode,
			truncate(rec.DestinationURL, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page Linked from", "Anchor Text", "URL (linked)", "Response Code", "Destination URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncate shortens long cell values so tables stay readable.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
