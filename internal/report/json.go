package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/clarityfilter/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indented JSON.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one scan report as a JSON document.
func (w *JSONWriter) Write(report *model.ScanReport) (int, error) {
	return w.writeJSON(report)
}

// WriteSummary outputs the batch totals as a JSON document.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// BatchReport is the complete output of a filter run.
type BatchReport struct {
	// Version is the clarityfilter version that produced the report.
	Version string `json:"version"`

	// Reports holds one report per document, in input order.
	Reports []*model.ScanReport `json:"reports"`

	// Summary totals the reports.
	Summary *model.Summary `json:"summary"`
}

// NewBatchReport wraps reports with their summary and a version.
func NewBatchReport(reports []*model.ScanReport, version string) *BatchReport {
	return &BatchReport{
		Version: version,
		Reports: reports,
		Summary: model.NewSummary(reports),
	}
}

// WriteBatch outputs a complete BatchReport.
func (w *JSONWriter) WriteBatch(batch *BatchReport) (int, error) {
	return w.writeJSON(batch)
}
