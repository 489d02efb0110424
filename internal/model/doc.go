// Package model defines the data structures shared by the engine, the
// reporters and the database.
//
// This package contains the following main types:
//   - ScanReport: the outcome of one scan of one document
//   - Summary: totals over several scan reports
//   - Page: a fetched document before it is parsed
//
// The types serialize to JSON for report output and database storage.
package model
