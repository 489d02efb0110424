package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/clarityfilter/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// Plain ASCII keeps the output readable when piped to files.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-pass counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-pass detail in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one scan report.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.section(&sb, "CLARITYFILTER SCAN")
	fmt.Fprintf(&sb, "URL:      %s\n", report.URL)
	if report.Host != "" {
		fmt.Fprintf(&sb, "Host:     %s\n", report.Host)
	}
	fmt.Fprintf(&sb, "Mode:     %s\n", report.Mode)
	if report.Trigger != "" {
		fmt.Fprintf(&sb, "Trigger:  %s\n", report.Trigger)
	}
	fmt.Fprintf(&sb, "Scanned:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration: %s\n", report.Duration)
	fmt.Fprintf(&sb, "Status:   %s\n\n", status(report))

	if report.Skipped != model.SkipNone {
		if report.Cleared > 0 {
			fmt.Fprintf(&sb, "  Cleared: %d\n\n", report.Cleared)
		}
	} else {
		fmt.Fprintf(&sb, "  Newly filtered: %d\n", report.Newly)
		fmt.Fprintf(&sb, "  Active:         %d\n\n", report.Active)
	}

	if w.verbose && len(report.Passes) > 0 {
		sb.WriteString(strings.Repeat("-", ruleWidth))
		sb.WriteString("\nPASSES\n")
		sb.WriteString(strings.Repeat("-", ruleWidth))
		sb.WriteString("\n\n")
		for _, p := range report.Passes {
			fmt.Fprintf(&sb, "  %-6s candidates=%d matched=%d applied=%d\n",
				p.Name, p.Candidates, p.Matched, p.Applied)
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs the totals of a batch.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.section(&sb, "CLARITYFILTER SUMMARY")
	fmt.Fprintf(&sb, "  Documents:  %d\n", summary.Documents)
	fmt.Fprintf(&sb, "  Filtered:   %d\n", summary.Filtered)
	fmt.Fprintf(&sb, "  Containers: %d\n", summary.Containers)
	fmt.Fprintf(&sb, "  Failed:     %d\n", summary.Failed)
	for _, reason := range summary.SkipReasons() {
		fmt.Fprintf(&sb, "  Skipped (%s): %d\n", reason, summary.Skipped[reason])
	}
	fmt.Fprintf(&sb, "  Duration:   %s\n", summary.Duration)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}
