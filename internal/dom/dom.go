// Package dom is a small query and mutation layer over golang.org/x/net/html
// node trees. It stands in for the browser DOM: documents are parsed, queried
// by tag, class, id and attribute, mutated in place and rendered back out.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMissingAnchor reports that an element an operation depends on is not
// in the document. Callers skip the operation.
var ErrMissingAnchor = errors.New("dom: missing anchor element")

// MissingAnchor wraps ErrMissingAnchor with what was looked for.
func MissingAnchor(what string) error {
	return fmt.Errorf("%w: %s", ErrMissingAnchor, what)
}

func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// ParseFragment parses markup as it would be parsed inside <body>.
func ParseFragment(s string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(s), body)
}

func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

func RenderString(n *html.Node) string {
	var b bytes.Buffer
	_ = html.Render(&b, n)
	return b.String()
}

// Matcher selects element nodes.
type Matcher func(*html.Node) bool

func Tag(name string) Matcher {
	name = strings.ToLower(name)
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == name }
}

func Class(class string) Matcher {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && HasClass(n, class) }
}

func AttrEq(key, val string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := lookupAttr(n, key)
		return ok && v == val
	}
}

func HasAttr(key string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		_, ok := lookupAttr(n, key)
		return ok
	}
}

func And(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// FindAll returns every descendant of root (excluding root) matching m, in
// document order.
func FindAll(root *html.Node, m Matcher) []*html.Node {
	var out []*html.Node
	if root == nil {
		return out
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// Find returns the first descendant matching m, or nil.
func Find(root *html.Node, m Matcher) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if found := Find(c, m); found != nil {
			return found
		}
	}
	return nil
}

func ByID(root *html.Node, id string) *html.Node {
	return Find(root, AttrEq("id", id))
}

// Closest returns n or its nearest ancestor matching m.
func Closest(n *html.Node, m Matcher) *html.Node {
	for ; n != nil; n = n.Parent {
		if m(n) {
			return n
		}
	}
	return nil
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	v, _ := lookupAttr(n, key)
	return v
}

func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	RemoveChildren(n)
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func RemoveChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// Append adds nodes as the last children of parent.
func Append(parent *html.Node, nodes ...*html.Node) {
	for _, c := range nodes {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		parent.AppendChild(c)
	}
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Element builds a detached element with the given attributes (key, value
// pairs).
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}
