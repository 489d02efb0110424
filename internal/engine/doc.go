// Package engine scans one document for filtered terms and redacts the
// containers that hold them.
//
// An Engine is built per document. It owns the current settings and the
// matcher compiled from them as one immutable snapshot, replaced as a whole
// by UpdateSettings. A scan runs three passes in decreasing order of
// confidence: explicit cards, item containers, then generic text-bearing
// elements. Each pass is a pipeline step, so cancellation is observed
// between passes and never inside one.
//
// Design decision: We hold the snapshot in an atomic.Pointer and replace it
// whole rather than guarding fields with a mutex because:
//  1. A scan loads the snapshot once and sees one consistent pair of
//     settings and matcher, even if UpdateSettings runs meanwhile
//  2. Compiling the matcher happens before the swap, outside any lock
//  3. Readers such as Settings never block the event loop
//
// The document is not safe for concurrent use. Scan, Rescan, Clear and
// UpdateSettings must run on the goroutine that owns the document; the
// watch package provides such a loop.
package engine
