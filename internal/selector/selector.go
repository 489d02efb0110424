package selector

import (
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/clarityfilter/internal/dom"
)

// Selector picks redaction containers. It is stateless apart from its
// configuration and may be shared by passes over one document.
type Selector struct {
	tables   Tables
	weights  Weights
	geometry dom.Geometry
}

// Option configures a Selector.
type Option func(*Selector)

// WithTables replaces the vocabularies.
func WithTables(t Tables) Option {
	return func(s *Selector) {
		s.tables = t
	}
}

// WithWeights replaces the weights.
func WithWeights(w Weights) Option {
	return func(s *Selector) {
		s.weights = w
	}
}

// New creates a Selector. A nil geometry disables the size checks.
func New(geometry dom.Geometry, opts ...Option) *Selector {
	s := &Selector{
		tables:   DefaultTables(),
		weights:  DefaultWeights(),
		geometry: geometry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pick returns the container to act on for match, which is either the
// matching text node or an element already known to hold the match.
//
// ok is false only when the match sits directly in the page shell or a
// landmark and no smaller element exists. The result is never the
// document, <html>, <body> or a landmark.
//
// Design decision: We correct the scored pick in a fixed order because each
// step assumes the previous one:
//  1. shrink first, so the promotions start inside a single item
//  2. promoteToBoundary may only climb to an element that is one card
//  3. promoteSideways runs last of the promotions; it is the only step
//     that reaches a sibling's media
//  4. guard and clamp run after every promotion, so no promotion can
//     return a landmark or a page-sized box
func (s *Selector) Pick(match *html.Node) (*html.Node, bool) {
	el := match
	if el != nil && el.Type != html.ElementNode {
		el = dom.ParentElement(el)
	}
	if el == nil || s.isRoot(el) {
		return nil, false
	}

	if a := dom.Closest(el, isArticle); a != nil &&
		s.hasMedia(a) && s.hasCardText(a) && !s.manyCards(a) && !s.forbidden(a) {
		return a, true
	}

	best := s.scoredWalk(el)
	best = s.shrink(best, el)
	best = s.promoteToBoundary(best)
	best = s.promoteSideways(best)
	best = s.guard(best, el, match.Type == html.ElementNode)
	best = s.clamp(best, el)

	if best == nil || s.forbidden(best) {
		return nil, false
	}
	return best, true
}

// Features extracts the scoring features of n.
func (s *Selector) Features(n *html.Node) Features {
	if s.isRoot(n) {
		return Features{Root: true}
	}
	f := Features{Huge: s.looksHuge(n, s.weights.HugeWidth, s.weights.HugeHeight)}
	if !f.Huge {
		f.ManyCards = s.manyCards(n)
	}
	if !f.Huge && !f.ManyCards {
		f.ManyHeadings = s.manyHeadings(n)
	}
	if f.Disqualified() {
		// The remaining features cannot change the score.
		return f
	}

	t := s.tables
	tokens := dom.ClassTokens(n)
	testID := dom.LowerAttr(n, "data-testid")
	limit := s.weights.ScanLimit
	return Features{
		Articleish:      s.articleish(n),
		SchemaArticle:   hasSchemaArticle(n),
		ItemTokens:      t.ItemTokens.Hits(tokens),
		WrapperTokens:   t.WrapperTokens.Hits(tokens),
		ItemTestID:      containsAny(testID, t.ItemTestIDs),
		WrapperTestID:   containsAny(testID, t.ScoredWrapperTestIDs),
		SimilarSiblings: similarSiblings(n),
		HasHeading:      dom.FindFirst(n, limit, s.headingLike) != nil,
		HasLink: dom.FindFirst(n, limit, func(c *html.Node) bool {
			return c.Data == "a" && dom.HasAttr(c, "href")
		}) != nil,
		HasImage: dom.FindFirst(n, limit, func(c *html.Node) bool {
			return c.Data == "img" || c.Data == "picture" || hasBackgroundImage(c)
		}) != nil,
		HasTime: dom.FindFirst(n, limit, func(c *html.Node) bool {
			return c.Data == "time" || dom.HasAttr(c, "datetime")
		}) != nil,
		Wrapper: s.looksWrapper(n),
	}
}

// Score returns the score of n at depth hops above the match.
func (s *Selector) Score(n *html.Node, depth int) float64 {
	return Score(s.Features(n), depth, s.weights)
}

func (s *Selector) scoredWalk(el *html.Node) *html.Node {
	var best *html.Node
	bestScore := math.Inf(-1)
	depth := 0
	for cur := el; cur != nil && !s.isRoot(cur) && depth <= s.weights.MaxHops; cur = dom.ParentElement(cur) {
		if sc := s.Score(cur, depth); sc > bestScore {
			best, bestScore = cur, sc
		}
		depth++
	}

	if h := dom.Closest(el, s.headingLike); h != nil {
		if item := dom.Closest(h, s.ItemLike); item != nil && !s.disqualified(item) {
			if best == nil || s.Score(item, 0) >= bestScore-s.weights.HeadingTie {
				best = item
			}
		}
	}
	if best == nil {
		return el
	}
	return best
}

// shrink narrows an oversized pick to the item around the match.
func (s *Selector) shrink(best, el *html.Node) *html.Node {
	if !s.isRoot(best) && !s.disqualified(best) {
		return best
	}
	for cur := el; cur != nil && cur != best; cur = dom.ParentElement(cur) {
		if s.ItemLike(cur) && !s.disqualified(cur) && !s.forbidden(cur) {
			return cur
		}
	}
	return best
}

// promoteToBoundary climbs to the nearest ancestor that is a single card,
// unless best already is one.
func (s *Selector) promoteToBoundary(best *html.Node) *html.Node {
	if s.singleCard(best) {
		return best
	}
	cur := best
	for i := 0; i < s.weights.BoundaryHops; i++ {
		p := dom.ParentElement(cur)
		if p == nil {
			break
		}
		if s.singleCard(p) {
			return p
		}
		cur = p
	}
	return best
}

// promoteSideways handles split markup where the image and the caption are
// siblings. It moves at most one level: to the parent, else the
// grandparent.
func (s *Selector) promoteSideways(best *html.Node) *html.Node {
	if s.hasMedia(best) && s.hasCardText(best) {
		return best
	}
	p := dom.ParentElement(best)
	if p == nil {
		return best
	}
	if s.sidewaysTarget(p) {
		return p
	}
	if gp := dom.ParentElement(p); gp != nil && s.sidewaysTarget(gp) {
		return gp
	}
	return best
}

func (s *Selector) sidewaysTarget(n *html.Node) bool {
	multi := s.manyCards(n) || s.looksWrapper(n) ||
		s.looksHuge(n, s.weights.HugeWidth, s.weights.HugeHeight)
	return s.hasMedia(n) && s.hasCardText(n) && !multi && !s.forbidden(n)
}

// guard replaces a landmark or oversized pick with the nearest article or
// list item, or with the matched element itself.
func (s *Selector) guard(best, el *html.Node, searchBelow bool) *html.Node {
	if !s.forbidden(best) && !s.disqualified(best) {
		return best
	}
	smaller := dom.Closest(el, isArticleOrListItem)
	if smaller == nil && searchBelow {
		smaller = dom.FindFirst(el, s.weights.ScanLimit, func(n *html.Node) bool {
			return isArticleOrListItem(n) || dom.HasClass(n, "card") ||
				dom.HasClass(n, "story") || dom.HasClass(n, "post")
		})
	}
	if smaller != nil && !s.disqualified(smaller) && !s.forbidden(smaller) {
		return smaller
	}
	return el
}

// clamp is the last size check with looser limits.
func (s *Selector) clamp(best, el *html.Node) *html.Node {
	tooBig := s.looksHuge(best, s.weights.ClampWidth, s.weights.ClampHeight) ||
		s.manyHeadings(best) || s.manyCards(best)
	if !tooBig {
		return best
	}
	small := dom.Closest(el, func(n *html.Node) bool {
		return isArticleOrListItem(n) || dom.HasClass(n, "card") || dom.HasClass(n, "story") ||
			dom.HasClass(n, "tile") || strings.Contains(dom.LowerAttr(n, "data-testid"), "card")
	})
	if small != nil && !s.forbidden(small) {
		return small
	}
	if p := dom.ParentElement(el); p != nil && !s.forbidden(p) && !s.disqualified(p) {
		return p
	}
	return el
}

// ItemLike reports elements that usually are one item: articles, list
// items, and elements carrying an item class.
func (s *Selector) ItemLike(n *html.Node) bool {
	if isArticleOrListItem(n) {
		return true
	}
	for _, c := range dom.Classes(n) {
		if s.tables.ItemClasses.Has(strings.ToLower(c)) {
			return true
		}
	}
	class := dom.LowerAttr(n, "class")
	return strings.Contains(class, s.tables.CardClass) && !containsAny(class, s.tables.CardClassExcludes)
}

// CardShaped reports explicit cards: an article, a card-classed element or
// a list item that holds both media and text.
func (s *Selector) CardShaped(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}
	class := dom.LowerAttr(n, "class")
	switch {
	case n.Data == "article",
		strings.Contains(class, s.tables.CardClass) && !strings.Contains(class, s.tables.CardClass+"s"):
		return s.hasMediaTag(n) && s.has(n, func(c *html.Node) bool {
			return isHeading(c) || c.Data == "p" || containsAny(dom.LowerAttr(c, "class"), s.tables.HeadingClasses)
		})
	case n.Data == "li":
		return s.hasMediaTag(n) && s.has(n, func(c *html.Node) bool {
			return isHeading(c) || c.Data == "p"
		})
	}
	return false
}

// TextBearing reports generic elements that carry item text: headings,
// paragraphs, labelled links and title-like classes.
func (s *Selector) TextBearing(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p":
		return true
	case "a":
		if dom.HasAttr(n, "aria-label") || dom.HasAttr(n, "title") {
			return true
		}
	}
	if dom.Attr(n, "role") == "heading" || dom.Attr(n, "itemprop") == "headline" {
		return true
	}
	return containsAny(dom.LowerAttr(n, "class"), s.tables.TextClasses)
}

// Clustered reports whether n holds two or more card-like descendants.
func (s *Selector) Clustered(n *html.Node) bool {
	return s.manyCards(n)
}

func (s *Selector) isRoot(n *html.Node) bool {
	if n == nil || n.Type == html.DocumentNode {
		return true
	}
	return n.Type == html.ElementNode && (n.Data == "html" || n.Data == "body")
}

func (s *Selector) forbidden(n *html.Node) bool {
	if s.isRoot(n) {
		return true
	}
	return s.tables.LandmarkTags.Has(n.Data) || s.tables.LandmarkRoles.Has(dom.LowerAttr(n, "role"))
}

func (s *Selector) disqualified(n *html.Node) bool {
	return s.looksHuge(n, s.weights.HugeWidth, s.weights.HugeHeight) ||
		s.manyCards(n) || s.manyHeadings(n)
}

// singleCard reports an acceptable card boundary.
func (s *Selector) singleCard(n *html.Node) bool {
	return !s.forbidden(n) && !s.disqualified(n) && s.hasMedia(n) && s.hasCardText(n)
}

func (s *Selector) looksHuge(n *html.Node, widthRatio, heightRatio float64) bool {
	if s.geometry == nil {
		return false
	}
	r, ok := s.geometry.Box(n)
	if !ok {
		return false
	}
	vp := s.geometry.Viewport()
	vw := math.Max(s.weights.MinViewport, vp.Width)
	vh := math.Max(s.weights.MinViewport, vp.Height)
	tooWide := r.Width >= vw*widthRatio
	tooTall := r.Height >= vh*heightRatio
	return (tooWide && tooTall) || r.Height >= s.weights.HugeAbsolute
}

func (s *Selector) looksWrapper(n *html.Node) bool {
	if isArticle(n) {
		return false
	}
	if containsAny(dom.LowerAttr(n, "data-testid"), s.tables.WrapperTestIDs) {
		return true
	}
	return s.tables.WrapperTokens.Hits(dom.ClassTokens(n)) > 0
}

func (s *Selector) looksItem(n *html.Node) bool {
	tokens := dom.ClassTokens(n)
	return s.tables.ItemTokens.Hits(tokens) > 0 && s.tables.WrapperTokens.Hits(tokens) == 0
}

func (s *Selector) articleish(n *html.Node) bool {
	if isArticle(n) {
		return true
	}
	for _, tok := range dom.ClassTokens(n) {
		if s.tables.ArticleTokens.Has(tok) {
			return true
		}
	}
	return false
}

func (s *Selector) headingLike(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return dom.Attr(n, "role") == "heading" || containsAny(dom.LowerAttr(n, "class"), s.tables.HeadingClasses)
}

func (s *Selector) manyHeadings(n *html.Node) bool {
	want := s.weights.ManyHeadings
	return dom.Count(n, s.weights.ScanLimit, want, s.headingLike) >= want
}

// cardish reports an item-looking element with media and text. It is the
// unit counted by cluster detection.
func (s *Selector) cardish(n *html.Node) bool {
	articley := isArticle(n) ||
		strings.Contains(dom.LowerAttr(n, "data-testid"), s.tables.CardClass) ||
		s.looksItem(n)
	return articley && s.hasMedia(n) && s.hasCardText(n)
}

func (s *Selector) manyCards(n *html.Node) bool {
	want := s.weights.ManyCards
	return dom.Count(n, s.weights.ScanLimit, want, s.cardish) >= want
}

func (s *Selector) has(n *html.Node, pred func(*html.Node) bool) bool {
	return dom.FindFirst(n, s.weights.ScanLimit, pred) != nil
}

func (s *Selector) hasMedia(n *html.Node) bool {
	return s.has(n, func(c *html.Node) bool {
		return s.tables.MediaTags.Has(c.Data) || hasBackgroundImage(c) ||
			containsAny(dom.LowerAttr(c, "class"), s.tables.MediaHints) ||
			containsAny(dom.LowerAttr(c, "data-testid"), s.tables.MediaHints)
	})
}

func (s *Selector) hasMediaTag(n *html.Node) bool {
	return s.has(n, func(c *html.Node) bool {
		return s.tables.MediaTags.Has(c.Data)
	})
}

func (s *Selector) hasCardText(n *html.Node) bool {
	return s.has(n, func(c *html.Node) bool {
		return isHeading(c) || c.Data == "p" || dom.Attr(c, "role") == "heading" ||
			containsAny(dom.LowerAttr(c, "class"), s.tables.CardTextClasses) ||
			strings.Contains(dom.LowerAttr(c, "data-testid"), "text")
	})
}

func isHeading(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return false
}

func isArticle(n *html.Node) bool {
	return dom.IsElement(n) && (n.Data == "article" || dom.Attr(n, "role") == "article")
}

func isArticleOrListItem(n *html.Node) bool {
	return isArticle(n) || (dom.IsElement(n) && n.Data == "li")
}

func hasSchemaArticle(n *html.Node) bool {
	t := dom.LowerAttr(n, "itemtype")
	return strings.Contains(t, "schema.org/article") || strings.Contains(t, "schema.org/newsarticle")
}

func hasBackgroundImage(n *html.Node) bool {
	return strings.Contains(dom.LowerAttr(n, "style"), "background-image")
}

// similarSiblings counts siblings that share a class token prefix or a
// data-testid prefix with n.
func similarSiblings(n *html.Node) int {
	p := dom.ParentElement(n)
	if p == nil {
		return 0
	}
	self := make(map[string]struct{})
	for _, tok := range dom.ClassTokens(n) {
		self[prefix6(tok)] = struct{}{}
	}
	selfID := testIDPrefix(n)

	count := 0
	for _, sib := range dom.ElementChildren(p) {
		if sib == n {
			continue
		}
		similar := selfID != "" && selfID == testIDPrefix(sib)
		for _, tok := range dom.ClassTokens(sib) {
			if _, ok := self[prefix6(tok)]; ok {
				similar = true
				break
			}
		}
		if similar {
			count++
		}
	}
	return count
}

func prefix6(tok string) string {
	if len(tok) > 6 {
		return tok[:6]
	}
	return tok
}

func testIDPrefix(n *html.Node) string {
	id := dom.LowerAttr(n, "data-testid")
	head, _, _ := strings.Cut(id, "-")
	return head
}
