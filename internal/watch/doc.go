// Package watch keeps a document filtered while it changes.
//
// A Watcher runs one event loop that owns the document. Page changes,
// settings changes, navigation and explicit requests all arrive as typed
// events and are handled one at a time on that loop, so the document is
// never touched from two goroutines.
//
// Mutation bursts are coalesced by a trailing debounce: the scan runs once
// the page has been quiet for the debounce window. Mutations caused by the
// engine itself (marker classes, overlays, the injected style) never
// schedule a scan.
//
// Design decision: We keep the debounce timer as loop state rather than
// using time.AfterFunc because:
//  1. The scan it triggers runs on the loop, next to every other event
//  2. Stopping or resetting the timer needs no lock
//  3. A rescan request or a settings change cancels a pending scan simply
//     by clearing the timer channel
package watch
