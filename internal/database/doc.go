// Package database provides SQLite-based storage for clarityfilter.
//
// The DB stores:
//   - settings snapshots, one row per revision, so another process can
//     notice a change by polling the latest revision;
//   - scan history for the history command;
//   - metadata of fetched pages.
//
// Design decision: We use SQLite (via modernc.org/sqlite) rather than a
// settings file because:
//  1. Revisions give other processes a cheap change check by polling
//  2. Scan history and page metadata live in the same file
//  3. The CGO-free driver keeps cross-compilation simple
//
// The database runs in WAL mode with a single connection since SQLite has
// one writer.
//
// DB implements settings.Store: Get returns the latest snapshot and
// OnChange subscribers are told about snapshots saved through this DB
// and, while Watch runs, about snapshots saved by other processes.
package database
