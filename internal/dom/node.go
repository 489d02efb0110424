package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Tag returns the lowercase tag name of an element, or "" for other nodes.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return n.Data
}

// Attr returns the value of the attribute key, or "" if it is not set.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute key is present, even if empty.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

// LowerAttr returns the attribute value lowercased.
func LowerAttr(n *html.Node, key string) string {
	return strings.ToLower(Attr(n, key))
}

// Classes returns the whitespace separated class names of n as written.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries the exact class name cls.
func HasClass(n *html.Node, cls string) bool {
	for _, c := range Classes(n) {
		if c == cls {
			return true
		}
	}
	return false
}

// ClassTokens splits the class attribute into lowercase alphanumeric tokens.
// "news-card__Title" yields ["news", "card", "title"].
func ClassTokens(n *html.Node) []string {
	class := strings.ToLower(Attr(n, "class"))
	if class == "" {
		return nil
	}
	return strings.FieldsFunc(class, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// ParentElement returns the closest ancestor that is an element.
func ParentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Closest returns n or the nearest ancestor element matching pred.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n != nil && n.Type != html.ElementNode {
		n = ParentElement(n)
	}
	for cur := n; cur != nil; cur = ParentElement(cur) {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// Walk visits the element descendants of root in document order, excluding
// root itself. It stops when fn returns false or after limit elements
// (limit <= 0 means unbounded).
func Walk(root *html.Node, limit int, fn func(*html.Node) bool) {
	if root == nil {
		return
	}
	seen := 0
	var visit func(n *html.Node) bool
	visit = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			seen++
			if limit > 0 && seen > limit {
				return false
			}
			if !fn(c) {
				return false
			}
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(root)
}

// FindFirst returns the first element descendant of root matching pred,
// searching at most limit elements.
func FindFirst(root *html.Node, limit int, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, limit, func(n *html.Node) bool {
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count counts element descendants of root matching pred. It stops early
// once stopAt matches have been seen (stopAt <= 0 means count all).
func Count(root *html.Node, limit, stopAt int, pred func(*html.Node) bool) int {
	count := 0
	Walk(root, limit, func(n *html.Node) bool {
		if pred(n) {
			count++
			if stopAt > 0 && count >= stopAt {
				return false
			}
		}
		return true
	})
	return count
}

// ElementChildren returns the direct element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// TextContent concatenates the text below n, reading at most maxRunes runes.
func TextContent(n *html.Node, maxRunes int) string {
	var b strings.Builder
	runes := 0
	var visit func(*html.Node) bool
	visit = func(cur *html.Node) bool {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				for _, r := range c.Data {
					if maxRunes > 0 && runes >= maxRunes {
						return false
					}
					b.WriteRune(r)
					runes++
				}
			case html.ElementNode:
				if skipText(c) {
					continue
				}
				if !visit(c) {
					return false
				}
			}
		}
		return true
	}
	if n != nil {
		visit(n)
	}
	return b.String()
}

// skipText reports elements whose text is never page content.
func skipText(n *html.Node) bool {
	switch n.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// NonContent reports script, style, noscript and template elements.
func NonContent(n *html.Node) bool {
	return IsElement(n) && skipText(n)
}

// Hidden reports whether n is hidden by markup: the hidden attribute, an
// inline display:none or visibility:hidden, or an engine hide marker.
func Hidden(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	if HasAttr(n, "hidden") {
		return true
	}
	style := compactStyle(Attr(n, "style"))
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	return HasClass(n, "cf-hidden")
}

// compactStyle lowercases an inline style and drops whitespace.
func compactStyle(style string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, style)
}

// Contains reports whether n is ancestor or equal to other.
func Contains(n, other *html.Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Owned reports whether n was created by the engine (overlay, style).
func Owned(n *html.Node) bool {
	return HasAttr(n, OwnedAttr)
}

// OwnedAttr marks elements the engine inserted into the page.
const OwnedAttr = "data-clarityfilter"
