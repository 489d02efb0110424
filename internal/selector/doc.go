// Package selector chooses which element represents "one item" around a
// matched piece of text.
//
// Pages rarely say where an item starts and ends. The selector guesses from
// structure: tag and ARIA role, class and data-testid vocabulary, repeated
// siblings, the presence of a heading, media and a timestamp, and the size of
// the element relative to the viewport. The goal is the smallest element
// that still holds the whole item, never a wrapper around many items and
// never the page shell.
//
// The vocabularies (Tables) and the numeric weights (Weights) are plain
// data passed into the selector. Score is a pure function of extracted
// Features and can be tested without a document.
package selector
