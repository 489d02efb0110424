package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationType classifies a MutationRecord.
type MutationType int

const (
	// MutationChildList means nodes were added to or removed from Target.
	MutationChildList MutationType = iota
	// MutationAttributes means an attribute of Target changed.
	MutationAttributes
	// MutationCharacterData means the text of Target changed.
	MutationCharacterData
)

// String returns the DOM name of the mutation type.
func (t MutationType) String() string {
	switch t {
	case MutationChildList:
		return "childList"
	case MutationAttributes:
		return "attributes"
	case MutationCharacterData:
		return "characterData"
	default:
		return "unknown"
	}
}

// MutationRecord describes one change to the document.
type MutationRecord struct {
	Type          MutationType
	Target        *html.Node
	Added         []*html.Node
	Removed       []*html.Node
	AttributeName string
}

// Observer receives mutation records synchronously, on the goroutine that
// performed the change.
type Observer func(MutationRecord)

// Document is a parsed page plus its current URL.
type Document struct {
	root      *html.Node
	url       *url.URL
	observers map[int]Observer
	nextID    int
	revision  uint64
	geometry  Geometry
}

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the viewport used by the default EstimatedLayout.
func WithViewport(width, height float64) Option {
	return func(d *Document) {
		d.geometry = NewEstimatedLayout(d, Rect{Width: width, Height: height})
	}
}

// WithGeometry replaces the geometry provider. The function receives the
// document so providers can check attachment.
func WithGeometry(fn func(*Document) Geometry) Option {
	return func(d *Document) {
		d.geometry = fn(d)
	}
}

// Parse reads an HTML document and associates it with pageURL.
func Parse(r io.Reader, pageURL string, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	d := &Document{
		root:      root,
		observers: make(map[int]Observer),
	}
	if err := d.SetURL(pageURL); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.geometry == nil {
		d.geometry = NewEstimatedLayout(d, DefaultViewport)
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s, pageURL string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), pageURL, opts...)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return d.child(atom.Body)
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return d.child(atom.Head)
}

func (d *Document) child(a atom.Atom) *html.Node {
	htmlEl := d.DocumentElement()
	if htmlEl == nil {
		return nil
	}
	for c := htmlEl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// URL returns the page URL.
func (d *Document) URL() string {
	if d.url == nil {
		return ""
	}
	return d.url.String()
}

// SetURL changes the page URL without reloading, like a single-page-app
// navigation. An empty URL is allowed and means "unknown page".
func (d *Document) SetURL(pageURL string) error {
	if pageURL == "" {
		d.url = nil
		return nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	d.url = u
	return nil
}

// Geometry returns the geometry provider.
func (d *Document) Geometry() Geometry {
	return d.geometry
}

// Revision increases on every mutation. Caches key on it.
func (d *Document) Revision() uint64 {
	return d.revision
}

// Attached reports whether n is part of this document's tree.
func (d *Document) Attached(n *html.Node) bool {
	return n != nil && Contains(d.root, n)
}

// Observe registers an observer and returns a function that removes it.
func (d *Document) Observe(o Observer) (cancel func()) {
	id := d.nextID
	d.nextID++
	d.observers[id] = o
	return func() { delete(d.observers, id) }
}

func (d *Document) notify(rec MutationRecord) {
	d.revision++
	if l, ok := d.geometry.(*EstimatedLayout); ok && l.doc == d {
		l.update(rec)
	}
	for _, o := range d.observers {
		o(rec)
	}
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *html.Node {
	return FindFirst(d.root, 0, func(n *html.Node) bool {
		return Attr(n, "id") == id
	})
}

// QueryAll returns elements of the whole document matching pred in document
// order, at most limit of them (limit <= 0 means all).
func (d *Document) QueryAll(limit int, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(d.root, 0, func(n *html.Node) bool {
		if pred(n) {
			out = append(out, n)
			if limit > 0 && len(out) >= limit {
				return false
			}
		}
		return true
	})
	return out
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes, as a page loading more content would.
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	if !IsElement(parent) {
		return nil, ErrNotElement
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.notify(MutationRecord{Type: MutationChildList, Target: parent, Added: nodes})
	}
	return nodes, nil
}

// AppendChild appends a detached node to parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	parent.AppendChild(child)
	d.notify(MutationRecord{Type: MutationChildList, Target: parent, Added: []*html.Node{child}})
}

// RemoveNode detaches n from its parent.
func (d *Document) RemoveNode(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(n)
	d.notify(MutationRecord{Type: MutationChildList, Target: parent, Removed: []*html.Node{n}})
}

// SetText replaces the data of a text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n == nil || n.Type != html.TextNode || n.Data == text {
		return
	}
	n.Data = text
	d.notify(MutationRecord{Type: MutationCharacterData, Target: n})
}

// SetAttr sets an attribute, adding it when missing.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return
			}
			n.Attr[i].Val = val
			d.notify(MutationRecord{Type: MutationAttributes, Target: n, AttributeName: key})
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.notify(MutationRecord{Type: MutationAttributes, Target: n, AttributeName: key})
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.notify(MutationRecord{Type: MutationAttributes, Target: n, AttributeName: key})
			return
		}
	}
}

// AddClass adds cls to the class list. It reports whether anything changed.
func (d *Document) AddClass(n *html.Node, cls string) bool {
	if !IsElement(n) || HasClass(n, cls) {
		return false
	}
	classes := append(Classes(n), cls)
	d.SetAttr(n, "class", strings.Join(classes, " "))
	return true
}

// RemoveClass removes cls from the class list. It reports whether anything
// changed. An emptied class attribute is removed.
func (d *Document) RemoveClass(n *html.Node, cls string) bool {
	if !HasClass(n, cls) {
		return false
	}
	kept := make([]string, 0, len(Classes(n)))
	for _, c := range Classes(n) {
		if c != cls {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		d.RemoveAttr(n, "class")
		return true
	}
	d.SetAttr(n, "class", strings.Join(kept, " "))
	return true
}

// NewElement creates a detached element owned by the engine.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	return n
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning "" on failure.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}
