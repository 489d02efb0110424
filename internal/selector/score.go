package selector

import "math"

// Features are the structural facts the score is computed from.
type Features struct {
	// Root is set for the document, <html> and <body>.
	Root bool

	// Huge, ManyCards and ManyHeadings disqualify an element.
	Huge         bool
	ManyCards    bool
	ManyHeadings bool

	Articleish    bool
	SchemaArticle bool
	ItemTokens    int
	WrapperTokens int
	ItemTestID    bool
	WrapperTestID bool

	SimilarSiblings int

	HasHeading bool
	HasLink    bool
	HasImage   bool
	HasTime    bool

	// Wrapper is set when the element looks like a group of items.
	Wrapper bool
}

// Disqualified reports whether the element is too big or holds several
// items.
func (f Features) Disqualified() bool {
	return f.Huge || f.ManyCards || f.ManyHeadings
}

// Score rates how well an element at depth hops above the match represents
// one item. Higher is better.
func Score(f Features, depth int, w Weights) float64 {
	if f.Root {
		return w.Root
	}
	if f.Disqualified() {
		return w.Disqualified
	}

	var s float64
	if f.Articleish {
		s += w.Articleish
	}
	if f.SchemaArticle {
		s += w.SchemaArticle
	}
	s += float64(f.ItemTokens)*w.ItemToken - float64(f.WrapperTokens)*w.WrapperToken
	if f.ItemTestID {
		s += w.ItemTestID
	}
	if f.WrapperTestID {
		s -= w.WrapperTestID
	}
	if n := f.SimilarSiblings; n >= w.SiblingMin && n <= w.SiblingLimit {
		s += math.Min(w.SiblingMax, w.SiblingBase+w.SiblingStep*float64(n))
	}
	if f.HasHeading {
		s += w.Heading
	}
	for _, signal := range []bool{f.HasLink, f.HasImage, f.HasTime} {
		if signal {
			s += w.CardSignal
		}
	}
	s -= float64(depth) * w.DepthStep
	if f.Wrapper {
		s -= w.Wrapper
	}
	return s
}
