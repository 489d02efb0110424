// Package report renders scan reports.
//
// Three formats are provided:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for other tools
//   - MarkdownWriter: Markdown for sharing, with a mermaid chart of the
//     active marks per mode
//
// Report data lives in the model package; writers only format it. A
// MultiWriter fans one report out to several writers.
package report
