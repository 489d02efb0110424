package redact

import (
	_ "embed"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// Marker vocabulary.
const (
	ClassHidden   = "cf-hidden"
	ClassBlur     = "cf-blur"
	ClassObscured = "cf-obscured"
	ClassReplaced = "cf-replaced"
	ClassOverlay  = "cf-overlay"

	// StyleID is the id of the injected style element.
	StyleID = "cf-style"
)

// Replace mode limits.
const (
	// Placeholder is the default substitute for a matched word.
	Placeholder = "████"
	// MaxReplaceNodes bounds the text nodes rewritten per container.
	MaxReplaceNodes = 1000
	// MaxReplaceRunes skips text nodes longer than this.
	MaxReplaceRunes = 10000
)

//go:embed style.css
var styleSheet string

var modeClass = map[settings.Mode]string{
	settings.ModeHide:     ClassHidden,
	settings.ModeBlur:     ClassBlur,
	settings.ModePixelate: ClassObscured,
	settings.ModeReplace:  ClassReplaced,
}

// Effect describes what Apply does.
type Effect struct {
	Mode settings.Mode
	// Matcher selects the words rewritten in replace mode.
	Matcher *matcher.Matcher
	// CellSize is the pixelate mosaic cell size in pixels.
	CellSize int
}

type replacement struct {
	original string
	current  string
}

// Actuator applies and removes effects on one document. Like the document,
// it is not safe for concurrent use.
type Actuator struct {
	doc         *dom.Document
	placeholder string
	style       *html.Node
	replaced    map[*html.Node]replacement
}

// Option configures an Actuator.
type Option func(*Actuator)

// WithPlaceholder sets the replace mode placeholder.
func WithPlaceholder(p string) Option {
	return func(a *Actuator) {
		if p != "" {
			a.placeholder = p
		}
	}
}

// New creates an actuator for doc.
func New(doc *dom.Document, opts ...Option) *Actuator {
	a := &Actuator{
		doc:         doc,
		placeholder: Placeholder,
		replaced:    make(map[*html.Node]replacement),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MarkOf returns the mode n is marked with.
func MarkOf(n *html.Node) (settings.Mode, bool) {
	if !dom.IsElement(n) {
		return "", false
	}
	for _, mode := range settings.Modes() {
		if dom.HasClass(n, modeClass[mode]) {
			return mode, true
		}
	}
	return "", false
}

// Marked reports whether n carries a mark.
func Marked(n *html.Node) bool {
	_, ok := MarkOf(n)
	return ok
}

// InsideMark reports whether n or one of its ancestors carries a mark.
func InsideMark(n *html.Node) bool {
	return dom.Closest(n, Marked) != nil
}

// Apply marks container with e. It returns true only when a new mark was
// created. A container that already carries any mark is left alone.
func (a *Actuator) Apply(container *html.Node, e Effect) bool {
	if !dom.IsElement(container) || !a.doc.Attached(container) || !e.Mode.Valid() {
		return false
	}
	if Marked(container) {
		return false
	}
	a.EnsureStyle()

	switch e.Mode {
	case settings.ModePixelate:
		a.doc.AddClass(container, ClassObscured)
		a.doc.AppendChild(container, a.overlay(container, e.CellSize))
	case settings.ModeReplace:
		a.replace(container, e.Matcher)
		a.doc.AddClass(container, ClassReplaced)
	default:
		a.doc.AddClass(container, modeClass[e.Mode])
	}
	return true
}

func (a *Actuator) overlay(container *html.Node, cell int) *html.Node {
	if cell < settings.MinPixelCellSize || cell > settings.MaxPixelCellSize {
		cell = settings.DefaultPixelCellSize
	}
	style := "--cf-cell: " + strconv.Itoa(cell) + "px"
	if r, ok := a.doc.Geometry().Box(container); ok && r.Width > 0 && r.Height > 0 {
		style += "; width: " + px(r.Width) + "; height: " + px(r.Height)
	} else {
		style += "; inset: 0"
	}
	// Phrasing content, so the overlay stays inside <p> and headings when the
	// rendered document is parsed again.
	return dom.NewElement("span",
		html.Attribute{Key: "class", Val: ClassOverlay + " pixelate"},
		html.Attribute{Key: "aria-hidden", Val: "true"},
		html.Attribute{Key: dom.OwnedAttr, Val: "overlay"},
		html.Attribute{Key: "style", Val: style},
	)
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// replace rewrites matching text nodes below root and returns how many it
// changed.
func (a *Actuator) replace(root *html.Node, m *matcher.Matcher) int {
	if m == nil {
		return 0
	}
	var nodes []*html.Node
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.TrimSpace(c.Data) == "" || utf8.RuneCountInString(c.Data) > MaxReplaceRunes {
					continue
				}
				if m.Match(c.Data) {
					nodes = append(nodes, c)
					if len(nodes) >= MaxReplaceNodes {
						return false
					}
				}
			case html.ElementNode:
				if dom.NonContent(c) || dom.Owned(c) {
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

	changed := 0
	for _, n := range nodes {
		out, count := m.Replace(n.Data, a.placeholder)
		if count == 0 {
			continue
		}
		original := n.Data
		if prev, ok := a.replaced[n]; ok {
			original = prev.original
		}
		a.replaced[n] = replacement{original: original, current: out}
		a.doc.SetText(n, out)
		changed++
	}
	return changed
}

// Clear removes every mark and overlay and restores replaced text. It
// returns the number of containers that were marked.
func (a *Actuator) Clear() int {
	marked := a.doc.QueryAll(0, Marked)
	for _, n := range marked {
		for _, cls := range modeClass {
			a.doc.RemoveClass(n, cls)
		}
	}
	for _, ov := range a.doc.QueryAll(0, isOverlay) {
		a.doc.RemoveNode(ov)
	}
	for n, r := range a.replaced {
		if a.doc.Attached(n) && n.Data == r.current {
			a.doc.SetText(n, r.original)
		}
	}
	clear(a.replaced)
	return len(marked)
}

// Active returns the number of marked containers.
func (a *Actuator) Active() int {
	return len(a.doc.QueryAll(0, Marked))
}

// EnsureStyle injects the style element once.
func (a *Actuator) EnsureStyle() {
	if a.style != nil && a.doc.Attached(a.style) {
		return
	}
	if existing := a.doc.ElementByID(StyleID); existing != nil {
		a.style = existing
		return
	}
	parent := a.doc.Head()
	if parent == nil {
		parent = a.doc.DocumentElement()
	}
	if parent == nil {
		return
	}
	style := dom.NewElement("style",
		html.Attribute{Key: "id", Val: StyleID},
		html.Attribute{Key: dom.OwnedAttr, Val: "style"},
	)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: styleSheet})
	a.doc.AppendChild(parent, style)
	a.style = style
}

func isOverlay(n *html.Node) bool {
	return dom.HasClass(n, ClassOverlay) && dom.Owned(n)
}
