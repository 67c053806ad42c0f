package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Fields returns the named form controls inside form, in document order.
func Fields(form *html.Node) []*html.Node {
	return FindAll(form, func(n *html.Node) bool {
		if n.Type != html.ElementNode || Attr(n, "name") == "" {
			return false
		}
		switch n.Data {
		case "textarea", "select":
			return true
		case "input":
			switch InputType(n) {
			case "submit", "button", "reset", "image":
				return false
			}
			return true
		}
		return false
	})
}

// FieldByName returns the first named control in form.
func FieldByName(form *html.Node, name string) *html.Node {
	for _, f := range Fields(form) {
		if Attr(f, "name") == name {
			return f
		}
	}
	return nil
}

// InputType is the lowercased type of an input, defaulting to "text".
func InputType(n *html.Node) string {
	if n == nil || n.Data != "input" {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(Attr(n, "type")))
	if t == "" {
		return "text"
	}
	return t
}

func IsFileInput(n *html.Node) bool { return InputType(n) == "file" }

// FieldValue returns the current value of a form control.
func FieldValue(n *html.Node) string {
	switch n.Data {
	case "textarea":
		return Text(n)
	case "select":
		opts := FindAll(n, Tag("option"))
		for _, o := range opts {
			if _, ok := lookupAttr(o, "selected"); ok {
				return optionValue(o)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	}
	return Attr(n, "value")
}

// SetFieldValue sets the value a control displays. File inputs are left
// alone; their selection is not part of the markup.
func SetFieldValue(n *html.Node, v string) {
	switch n.Data {
	case "textarea":
		SetText(n, v)
	case "select":
		for _, o := range FindAll(n, Tag("option")) {
			RemoveAttr(o, "selected")
			if optionValue(o) == v {
				SetAttr(o, "selected", "")
			}
		}
	case "input":
		if IsFileInput(n) {
			return
		}
		SetAttr(n, "value", v)
	}
}

func optionValue(o *html.Node) string {
	if v, ok := lookupAttr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(Text(o))
}
