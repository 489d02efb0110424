package engine

import (
	"context"

	"golang.org/x/net/html"

	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/pipeline"
	"github.com/nao1215/clarityfilter/internal/redact"
)

// Pass names, in execution order.
const (
	PassCards = "cards"
	PassItems = "items"
	PassText  = "text"
)

// pass is one candidate pass bound to a snapshot.
type pass struct {
	name   string
	engine *Engine
	snap   *snapshot

	// accept selects the candidates.
	accept func(*html.Node) bool

	// anchorElement makes the candidate, not its matching text node, the
	// starting point of container selection.
	anchorElement bool
}

var _ pipeline.Step = (*pass)(nil)

// passes returns the ordered passes for one scan.
func (e *Engine) passes(snap *snapshot) []pipeline.Step {
	sel := e.selector
	return []pipeline.Step{
		&pass{
			name: PassCards, engine: e, snap: snap, anchorElement: true,
			accept: func(n *html.Node) bool {
				return sel.CardShaped(n) && !sel.Clustered(n)
			},
		},
		&pass{
			name: PassItems, engine: e, snap: snap,
			accept: func(n *html.Node) bool {
				return sel.ItemLike(n) && !sel.Clustered(n)
			},
		},
		&pass{
			name: PassText, engine: e, snap: snap,
			accept: sel.TextBearing,
		},
	}
}

// Name implements pipeline.Step.
func (p *pass) Name() string {
	return p.name
}

// Do implements pipeline.Step. The candidate set is captured up front and
// always processed to the end.
func (p *pass) Do(_ context.Context, report *model.ScanReport) error {
	e := p.engine
	result := report.Pass(p.name)
	effect := p.snap.effect()

	candidates := e.doc.QueryAll(e.maxCandidates, func(n *html.Node) bool {
		return !dom.Owned(n) && !dom.NonContent(n) && p.accept(n)
	})
	result.Candidates = len(candidates)

	for _, c := range candidates {
		if !e.doc.Attached(c) || redact.InsideMark(c) || dom.Closest(c, dom.Hidden) != nil {
			continue
		}
		text := matchingText(c, p.snap.matcher, e.maxTextNodes)
		if text == nil {
			continue
		}
		result.Matched++

		anchor := text
		if p.anchorElement {
			anchor = c
		}
		container, ok := e.selector.Pick(anchor)
		if !ok {
			continue
		}
		if e.actuator.Apply(container, effect) {
			result.Applied++
			report.Newly++
		}
	}
	return nil
}

// matchingText returns the first visible text node below root that holds a
// term, reading at most limit text nodes. Hidden, non-content, engine-owned
// and already marked subtrees are not entered.
func matchingText(root *html.Node, m *matcher.Matcher, limit int) *html.Node {
	if m == nil || skipSubtree(root) {
		return nil
	}
	seen := 0
	var found *html.Node
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				seen++
				if seen > limit {
					return false
				}
				if m.Match(c.Data) {
					found = c
					return false
				}
			case html.ElementNode:
				if skipSubtree(c) {
					continue
				}
				if !visit(c) {
					return false
				}
			}
		}
		return true
	}
	visit(root)
	return found
}

func skipSubtree(n *html.Node) bool {
	return dom.Hidden(n) || dom.NonContent(n) || dom.Owned(n) || redact.Marked(n)
}
