package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one scan report.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Scan of `" + report.URL + "`")
	md.PlainText("")

	rows := [][]string{
		{"Host", orDash(report.Host)},
		{"Mode", string(report.Mode)},
		{"Trigger", orDash(report.Trigger)},
		{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Duration.String()},
		{"Status", statusText(report)},
	}
	if report.Skipped == model.SkipNone {
		rows = append(rows,
			[]string{"Newly filtered", strconv.Itoa(report.Newly)},
			[]string{"Active", strconv.Itoa(report.Active)},
		)
	} else {
		rows = append(rows, []string{"Cleared", strconv.Itoa(report.Cleared)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Passes) > 0 {
		passRows := make([][]string, len(report.Passes))
		for i, p := range report.Passes {
			passRows[i] = []string{
				p.Name,
				strconv.Itoa(p.Candidates),
				strconv.Itoa(p.Matched),
				strconv.Itoa(p.Applied),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Pass", "Candidates", "Matched", "Applied"},
			Rows:   passRows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// statusText returns the status cell of a report.
func statusText(report *model.ScanReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out (partial results)"
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.Skipped != model.SkipNone:
		return "⏭️ Skipped (" + string(report.Skipped) + ")"
	default:
		return "✅ Complete"
	}
}

// WriteSummary outputs the batch totals.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("ClarityFilter Report")
	md.PlainText("")

	rows := [][]string{
		{"Documents", strconv.Itoa(summary.Documents)},
		{"Filtered", strconv.Itoa(summary.Filtered)},
		{"Containers", strconv.Itoa(summary.Containers)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	for _, reason := range summary.SkipReasons() {
		rows = append(rows, []string{"Skipped (" + string(reason) + ")", strconv.Itoa(summary.Skipped[reason])})
	}
	rows = append(rows, []string{"Duration", summary.Duration.String()})
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Containers > 0 {
		w.writePieChart(md, summary)
	}

	switch {
	case summary.Failed > 0:
		md.Warningf("%d document(s) could not be filtered completely.", summary.Failed)
	case summary.Filtered > 0:
		md.Note(fmt.Sprintf("%d container(s) concealed across %d document(s).", summary.Containers, summary.Filtered))
	default:
		md.Tip("Nothing matched the filtered terms.")
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart of active marks per mode.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Concealed Containers by Mode"),
		piechart.WithShowData(true),
	)
	for _, mode := range settings.Modes() {
		if n := summary.ByMode[mode]; n > 0 {
			chart.LabelAndIntValue(string(mode), uint64(n))
		}
	}
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
