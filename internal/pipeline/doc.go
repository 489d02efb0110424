// Package pipeline runs ordered steps over a scan report and filters
// several documents concurrently.
//
// A scan is a sequence of candidate passes over one document. Each pass is a
// Step that receives the report and adds its counters to it. The Pipeline
// checks for cancellation between steps only: a started pass runs to
// completion over the candidates it captured.
//
// BatchProcessor filters many documents at once with errgroup. Each
// document is processed by its own goroutine with its own engine, so the
// single-threaded model of a document is preserved.
package pipeline
