package reconcile

import (
	"context"
	"html"
	"regexp"
	"strings"

	"sitekeeper/internal/codec"
	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"

	xhtml "golang.org/x/net/html"
)

// Extractor derives seed records for kind from a document.
type Extractor func(ctx context.Context, kind content.Kind, doc *xhtml.Node) (content.Collection, error)

var (
	costPattern = regexp.MustCompile(`(?i)Cost:\s*([^<\n]+)`)
	// costTail also eats the line break the display markup puts before it.
	costTail = regexp.MustCompile(`(?i)\s*(?:<br\s*/?>\s*)?Cost:\s*[^<\n]+`)
)

// PublicPage reads records from the display markup of a public page.
func PublicPage(_ context.Context, kind content.Kind, doc *xhtml.Node) (content.Collection, error) {
	switch kind {
	case content.Projects:
		return publicProjects(doc), nil
	case content.Members:
		return publicMembers(doc), nil
	case content.Finances:
		if rec := publicFinances(doc); len(rec) > 0 {
			return content.Collection{rec}, nil
		}
	}
	return content.Collection{}, nil
}

func publicProjects(doc *xhtml.Node) content.Collection {
	c := content.Collection{}
	for _, el := range dom.FindAll(doc, dom.Class("project")) {
		desc := strings.TrimSpace(dom.InnerHTML(dom.Find(el, dom.Tag("div"))))
		var cost string
		if m := costPattern.FindStringSubmatch(desc); m != nil {
			cost = strings.TrimSpace(html.UnescapeString(m[1]))
			desc = strings.TrimSpace(costTail.ReplaceAllString(desc, ""))
		}
		c = append(c, content.Record{
			"title":       strings.TrimSpace(dom.Text(dom.Find(el, dom.Tag("h2")))),
			"image":       dom.Attr(dom.Find(el, dom.Tag("img")), "src"),
			"description": desc,
			"cost":        cost,
		})
	}
	return c
}

func publicMembers(doc *xhtml.Node) content.Collection {
	c := content.Collection{}
	for _, el := range dom.FindAll(doc, dom.Class("member")) {
		paras := dom.FindAll(el, dom.Tag("p"))
		para := func(i int, prefix string) string {
			if i >= len(paras) {
				return ""
			}
			return trimLabel(dom.Text(paras[i]), prefix)
		}
		c = append(c, content.Record{
			"image": dom.Attr(dom.Find(el, dom.Tag("img")), "src"),
			"name":  strings.TrimSpace(dom.Text(dom.Find(el, dom.Tag("h3")))),
			"role":  para(0, "Role:"),
			"teams": para(1, "Teams:"),
			"bio":   para(2, "Bio:"),
		})
	}
	return c
}

// trimLabel drops a case-insensitive label prefix and surrounding space.
func trimLabel(s, label string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
		s = s[len(label):]
	}
	return strings.TrimSpace(s)
}

func publicFinances(doc *xhtml.Node) content.Record {
	root := dom.Find(doc, dom.Class("finances"))
	if root == nil {
		return nil
	}
	rec := content.Record{}
	items := dom.FindAll(root, dom.Class("other-item"))
	for _, el := range dom.FindAll(root, dom.HasAttr("data-field")) {
		if insideAny(el, items) {
			continue
		}
		rec[dom.Attr(el, "data-field")] = fieldText(el)
	}
	for i, it := range items {
		rec[content.OtherItemField(i, "label")] = fieldText(dom.Find(it, dom.AttrEq("data-field", "label")))
		rec[content.OtherItemField(i, "value")] = fieldText(dom.Find(it, dom.AttrEq("data-field", "value")))
	}
	return rec
}

func insideAny(n *xhtml.Node, roots []*xhtml.Node) bool {
	for _, r := range roots {
		if dom.Contains(r, n) {
			return true
		}
	}
	return false
}

// fieldText reads a display value: image sources, link targets, progress
// values and markdown sources come from attributes, the rest from text.
func fieldText(el *xhtml.Node) string {
	if el == nil {
		return ""
	}
	switch el.Data {
	case "img":
		return dom.Attr(el, "src")
	case "a":
		return dom.Attr(el, "href")
	case "progress":
		return dom.Attr(el, "value")
	}
	if dom.HasAttr("data-markdown")(el) {
		return dom.Attr(el, "data-markdown")
	}
	return strings.TrimSpace(dom.Text(el))
}

// EditForms reads records from edit forms already present in doc, in
// document order. A form's preview image stands in for its file input.
func EditForms(ctx context.Context, kind content.Kind, doc *xhtml.Node) (content.Collection, error) {
	c := content.Collection{}
	for _, form := range dom.FindAll(doc, FormsOf(kind)) {
		rec, err := codec.ExtractRecord(ctx, form, nil)
		if err != nil {
			return nil, err
		}
		for _, field := range kind.ImageFields() {
			img := dom.Find(form, dom.AttrEq("data-preview-for", field))
			if src := dom.Attr(img, "src"); src != "" {
				rec[field] = src
			}
		}
		c = append(c, rec)
	}
	return c, nil
}
