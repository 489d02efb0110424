// Package dom provides the document model the filter engine runs against.
//
// A Document wraps a tree parsed by golang.org/x/net/html together with the
// URL the page is currently showing. It plays the role a browser page plays
// for a content script:
//   - read-only structural queries (tags, attributes, class tokens, bounded
//     descendant searches, text walks)
//   - a small write surface, used by the page itself (AppendHTML, SetText)
//     and by the engine (classes, overlays, one injected style element)
//   - synchronous mutation notifications, in the spirit of MutationObserver
//   - geometry answers through the Geometry interface
//
// # Geometry
//
// There is no layout engine here. EstimatedLayout derives boxes from
// structure: media elements, text line counts and explicit width/height
// attributes or inline px styles. The numbers are only used to tell a single
// card from a page-sized wrapper, so an estimate is enough.
//
// # Concurrency
//
// A Document is not safe for concurrent use. All reads and writes must happen
// on one goroutine, usually the watcher's event loop.
package dom
