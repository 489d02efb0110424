package selector

import "strings"

// TokenSet is a set of lowercase tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from items.
func NewTokenSet(items ...string) TokenSet {
	s := make(TokenSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Hits counts the tokens that are in the set. Repeated tokens count again.
func (s TokenSet) Hits(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if s.Has(t) {
			n++
		}
	}
	return n
}

// Tables holds the vocabularies used to classify elements.
type Tables struct {
	// ItemTokens are class tokens that suggest a single item.
	ItemTokens TokenSet
	// WrapperTokens are class tokens that suggest a group of items.
	WrapperTokens TokenSet
	// ArticleTokens are class tokens that make an element article-ish.
	ArticleTokens TokenSet

	// ItemTestIDs raise the score when contained in data-testid.
	ItemTestIDs []string
	// ScoredWrapperTestIDs lower the score when contained in data-testid.
	ScoredWrapperTestIDs []string
	// WrapperTestIDs mark an element as a wrapper when contained in
	// data-testid.
	WrapperTestIDs []string

	// ItemClasses are exact class names of item containers.
	ItemClasses TokenSet
	// CardClass is the class substring of card-like elements.
	CardClass string
	// CardClassExcludes disqualify a CardClass match.
	CardClassExcludes []string

	// HeadingClasses are class substrings of heading-like elements.
	HeadingClasses []string
	// CardTextClasses are class substrings of card text.
	CardTextClasses []string
	// TextClasses are class substrings of generic text-bearing elements.
	TextClasses []string

	// MediaTags are element names that render media.
	MediaTags TokenSet
	// MediaHints are class and data-testid substrings of media boxes.
	MediaHints []string

	// LandmarkTags are never acted on.
	LandmarkTags TokenSet
	// LandmarkRoles are ARIA roles that are never acted on.
	LandmarkRoles TokenSet
}

// DefaultTables returns the tuned vocabularies.
func DefaultTables() Tables {
	return Tables{
		ItemTokens: NewTokenSet(
			"card", "post", "article", "story", "result", "entry", "item",
			"tile", "teaser", "news", "media", "module", "node",
		),
		WrapperTokens: NewTokenSet(
			"cards", "lists", "list", "grid", "row", "rows", "wrapper", "wrap",
			"container", "content", "layout", "root", "app", "main", "feed",
			"stream", "section", "group", "results", "blocks", "block", "area",
			"zone", "columns", "column", "col", "listing", "listings", "panel",
			"rail",
		),
		ArticleTokens:        NewTokenSet("post", "article", "story", "tile"),
		ItemTestIDs:          []string{"card", "promo", "article"},
		ScoredWrapperTestIDs: []string{"grid", "list", "wrapper"},
		WrapperTestIDs: []string{
			"grid", "stack", "cluster", "wrapper", "container", "list",
			"section", "columns", "row", "rail", "unit",
		},
		ItemClasses: NewTokenSet(
			"post", "news-item", "story", "card", "teaser", "result",
			"feed-item", "stream-item", "entry", "tile", "search-result",
			"list-item",
		),
		CardClass: "card",
		CardClassExcludes: []string{
			"cards", "wrapper", "wrap", "list", "grid", "container", "content",
			"row", "results", "blocks", "block", "section",
		},
		HeadingClasses:  []string{"title", "headline"},
		CardTextClasses: []string{"title", "headline", "description"},
		TextClasses: []string{
			"title", "headline", "story", "teaser", "desc", "summary", "entry",
			"tile", "result", "news", "article",
		},
		MediaTags:     NewTokenSet("img", "picture", "video"),
		MediaHints:    []string{"media"},
		LandmarkTags:  NewTokenSet("html", "body", "main", "header", "footer", "nav"),
		LandmarkRoles: NewTokenSet("main", "banner", "contentinfo", "navigation"),
	}
}

// Weights holds the tuned score weights and size thresholds.
type Weights struct {
	Articleish    float64
	SchemaArticle float64
	ItemToken     float64
	WrapperToken  float64
	ItemTestID    float64
	WrapperTestID float64

	// Similar siblings add min(SiblingMax, SiblingBase+SiblingStep*n) when
	// SiblingMin <= n <= SiblingLimit.
	SiblingBase  float64
	SiblingStep  float64
	SiblingMax   float64
	SiblingMin   int
	SiblingLimit int

	Heading float64
	// CardSignal is added once each for a link, an image and a timestamp.
	CardSignal float64
	Wrapper    float64
	DepthStep  float64

	Disqualified float64
	Root         float64
	// HeadingTie is how far below the best score a heading-anchored item
	// may score and still win.
	HeadingTie float64

	// MaxHops bounds the upward walk.
	MaxHops int
	// BoundaryHops bounds promotion towards a card boundary.
	BoundaryHops int
	// ScanLimit bounds descendant walks.
	ScanLimit int
	// ManyCards and ManyHeadings are the cluster thresholds.
	ManyCards    int
	ManyHeadings int

	// An element is huge when it covers HugeWidth of the viewport width and
	// HugeHeight of its height, or is taller than HugeAbsolute pixels.
	HugeWidth    float64
	HugeHeight   float64
	HugeAbsolute float64
	// ClampWidth and ClampHeight are the looser limits of the final clamp.
	ClampWidth  float64
	ClampHeight float64
	// MinViewport is the smallest viewport side assumed.
	MinViewport float64
}

// DefaultWeights returns the tuned weights.
func DefaultWeights() Weights {
	return Weights{
		Articleish:    40,
		SchemaArticle: 20,
		ItemToken:     8,
		WrapperToken:  8,
		ItemTestID:    10,
		WrapperTestID: 10,
		SiblingBase:   6,
		SiblingStep:   2,
		SiblingMax:    24,
		SiblingMin:    1,
		SiblingLimit:  50,
		Heading:       12,
		CardSignal:    6,
		Wrapper:       15,
		DepthStep:     3,
		Disqualified:  -500,
		Root:          -1e6,
		HeadingTie:    5,
		MaxHops:       8,
		BoundaryHops:  4,
		ScanLimit:     2000,
		ManyCards:     2,
		ManyHeadings:  3,
		HugeWidth:     0.9,
		HugeHeight:    0.6,
		HugeAbsolute:  1200,
		ClampWidth:    0.85,
		ClampHeight:   0.7,
		MinViewport:   320,
	}
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
