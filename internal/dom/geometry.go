package dom

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Rect is the size of an element's box in CSS pixels.
type Rect struct {
	Width  float64
	Height float64
}

// Geometry answers layout questions about a document.
type Geometry interface {
	// Box returns the size of n. ok is false when n has no box, for
	// example because it is detached from the document.
	Box(n *html.Node) (r Rect, ok bool)

	// Viewport returns the visible area.
	Viewport() Rect
}

// DefaultViewport is a common laptop viewport.
var DefaultViewport = Rect{Width: 1280, Height: 800}

// Estimation constants for EstimatedLayout.
const (
	lineHeight    = 20.0
	headingHeight = 32.0
	charsPerLine  = 80
	mediaHeight   = 180.0
	blockPadding  = 8.0

	// estimateBudget bounds the elements visited for one Box call.
	estimateBudget = 4000
)

// EstimatedLayout derives element boxes from markup.
//
// Width is taken from an explicit width (attribute or inline px style) or
// inherited from the parent, down from the viewport. Height is an explicit
// height when present, otherwise the sum of block children, media boxes and
// wrapped text lines.
//
// Heights and widths are memoised per element. A mutation updates only what
// it can affect: the changed element, the chain of its ancestors and, for a
// width change, its descendants. A height change is carried to the cached
// ancestors as a difference, so marking one card in a large grid does not
// re-estimate the grid.
//
// Design decision: We update the cache from mutation records instead of
// dropping it on every revision because a scan marks many cards in a row
// and asks for the grid's box between marks. Dropping the cache made each
// of those questions walk the whole grid again. A record that arrives out
// of order (a missed revision) still drops the cache.
type EstimatedLayout struct {
	doc      *Document
	viewport Rect
	heights  map[*html.Node]float64
	widths   map[*html.Node]float64
	revision uint64
}

// NewEstimatedLayout creates an estimator for doc.
func NewEstimatedLayout(doc *Document, viewport Rect) *EstimatedLayout {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = DefaultViewport
	}
	l := &EstimatedLayout{doc: doc, viewport: viewport}
	l.reset()
	return l
}

func (l *EstimatedLayout) reset() {
	l.heights = make(map[*html.Node]float64)
	l.widths = make(map[*html.Node]float64)
	l.revision = l.doc.Revision()
}

// Viewport implements Geometry.
func (l *EstimatedLayout) Viewport() Rect {
	return l.viewport
}

// Box implements Geometry.
func (l *EstimatedLayout) Box(n *html.Node) (Rect, bool) {
	if !IsElement(n) || !l.doc.Attached(n) {
		return Rect{}, false
	}
	if l.revision != l.doc.Revision() {
		// Changed without a mutation record reaching this layout.
		l.reset()
	}
	h, ok := l.heights[n]
	if !ok {
		budget := estimateBudget
		h = l.height(n, &budget)
		// A top-level estimate is kept even when the budget ran out.
		l.heights[n] = h
	}
	return Rect{Width: l.width(n), Height: h}, true
}

func (l *EstimatedLayout) width(n *html.Node) float64 {
	if w, ok := l.widths[n]; ok {
		return w
	}
	w := l.viewport.Width
	if v, ok := explicitSize(n, "width"); ok {
		w = v
	} else if p := ParentElement(n); p != nil {
		w = l.width(p)
	}
	l.widths[n] = w
	return w
}

// height estimates n. Results are memoised only when the whole subtree fit
// in the budget.
func (l *EstimatedLayout) height(n *html.Node, budget *int) float64 {
	if h, ok := l.heights[n]; ok {
		return h
	}
	*budget--
	if *budget < 0 {
		return 0
	}
	h := l.estimate(n, budget)
	if *budget >= 0 {
		l.heights[n] = h
	}
	return h
}

func (l *EstimatedLayout) estimate(n *html.Node, budget *int) float64 {
	if fixed, h := fixedHeight(n); fixed {
		return h
	}

	var h float64
	inline := 0
	blocks := 0
	flush := func() {
		if inline == 0 {
			return
		}
		lines := (inline + charsPerLine - 1) / charsPerLine
		h += float64(lines) * l.lineHeightFor(n)
		inline = 0
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			inline += utf8.RuneCountInString(strings.TrimSpace(c.Data))
		case html.ElementNode:
			if inlineRun(c) {
				inline += utf8.RuneCountInString(strings.TrimSpace(TextContent(c, 4096)))
				continue
			}
			flush()
			h += l.height(c, budget)
			blocks++
		}
	}
	flush()
	if blocks > 1 {
		h += blockPadding
	}
	return h
}

// fixedHeight reports whether the height of n does not depend on its
// children, and that height.
func fixedHeight(n *html.Node) (bool, float64) {
	if Hidden(n) || NonContent(n) || Owned(n) {
		return true, 0
	}
	if h, ok := explicitSize(n, "height"); ok {
		return true, h
	}
	switch n.Data {
	case "head", "meta", "link", "title", "base":
		return true, 0
	case "img", "video", "iframe", "svg", "canvas", "embed", "object":
		return true, mediaHeight
	case "br", "hr":
		return true, lineHeight / 2
	}
	return false, 0
}

// inlineRun reports whether n counts toward its parent as wrapped text
// rather than as a block.
func inlineRun(n *html.Node) bool {
	return inlineTag(n.Data) && !hasMediaBelow(n)
}

// update brings the memoised estimates in line with rec.
func (l *EstimatedLayout) update(rec MutationRecord) {
	if l.revision+1 != l.doc.Revision() {
		l.reset()
		return
	}
	l.revision = l.doc.Revision()

	switch rec.Type {
	case MutationAttributes:
		switch rec.AttributeName {
		case "style":
			l.forgetWidths(rec.Target)
			l.heightChanged(rec.Target)
		case "width":
			l.forgetWidths(rec.Target)
		case "height", "class", "hidden":
			l.heightChanged(rec.Target)
		}
	case MutationCharacterData:
		// Text counts toward the nearest block; inline wrappers on the way
		// are re-estimated on demand.
		e := ParentElement(rec.Target)
		for e != nil && inlineRun(e) {
			delete(l.heights, e)
			e = ParentElement(e)
		}
		if e != nil {
			l.heightChanged(e)
		}
	case MutationChildList:
		for _, n := range rec.Removed {
			l.forget(n)
		}
		l.heightChanged(rec.Target)
	}
}

// heightChanged re-estimates n from its memoised children and carries the
// difference to the cached ancestors whose height includes n.
func (l *EstimatedLayout) heightChanged(n *html.Node) {
	if !IsElement(n) {
		return
	}
	old, had := l.heights[n]
	delete(l.heights, n)
	if !had {
		l.forgetAncestors(n)
		return
	}
	budget := estimateBudget
	delta := l.height(n, &budget) - old

	for c, p := n, ParentElement(n); p != nil && delta != 0; c, p = p, ParentElement(p) {
		if inlineRun(c) {
			// p counts the text of c, which did not change.
			return
		}
		if fixed, _ := fixedHeight(p); fixed {
			return
		}
		h, ok := l.heights[p]
		if !ok {
			l.forgetAncestors(p)
			return
		}
		l.heights[p] = h + delta
	}
}

func (l *EstimatedLayout) forgetAncestors(n *html.Node) {
	for p := n; p != nil; p = p.Parent {
		delete(l.heights, p)
	}
}

// forget drops every estimate of the subtree at n.
func (l *EstimatedLayout) forget(n *html.Node) {
	delete(l.heights, n)
	delete(l.widths, n)
	Walk(n, 0, func(c *html.Node) bool {
		delete(l.heights, c)
		delete(l.widths, c)
		return true
	})
}

func (l *EstimatedLayout) forgetWidths(n *html.Node) {
	delete(l.widths, n)
	Walk(n, 0, func(c *html.Node) bool {
		delete(l.widths, c)
		return true
	})
}

func (l *EstimatedLayout) lineHeightFor(n *html.Node) float64 {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return headingHeight
	}
	return lineHeight
}

func inlineTag(tag string) bool {
	switch tag {
	case "a", "span", "b", "i", "em", "strong", "small", "time", "abbr", "code",
		"label", "sup", "sub", "u", "mark", "cite", "q", "s":
		return true
	}
	return false
}

func hasMediaBelow(n *html.Node) bool {
	return FindFirst(n, 256, func(c *html.Node) bool {
		switch c.Data {
		case "img", "video", "picture", "iframe", "svg", "canvas":
			return true
		}
		return false
	}) != nil
}

// explicitSize reads a px size from the inline style or the attribute.
func explicitSize(n *html.Node, prop string) (float64, bool) {
	style := compactStyle(Attr(n, "style"))
	for _, decl := range strings.Split(style, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok || name != prop {
			continue
		}
		if v, ok := parsePx(val); ok {
			return v, true
		}
	}
	if v, ok := parsePx(Attr(n, prop)); ok {
		return v, true
	}
	return 0, false
}

func parsePx(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
