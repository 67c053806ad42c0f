package editor

import (
	"strconv"

	"sitekeeper/internal/dom"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// notify appends a transient notice to parent. Notices carry their expiry
// and are swept before the next render.
func (p *Page) notify(parent *html.Node, text string, failed bool) {
	class := "save-notice"
	if failed {
		class += " error"
	}
	n := dom.Element("div",
		"id", "notice-"+uuid.NewString(),
		"class", class,
		"role", "status",
		"data-expires", strconv.FormatInt(p.now().Add(p.ttl).UnixMilli(), 10),
	)
	dom.SetText(n, text)
	dom.Append(parent, n)
}

// notifyPage shows a notice in the page's notice area, or at the top of the
// editor when the page has none.
func (p *Page) notifyPage(text string) {
	area := p.byID("notices")
	if area == nil {
		area = p.root
	}
	if area == nil {
		return
	}
	p.notify(area, text, false)
}

func (p *Page) sweepNotices() {
	now := p.now().UnixMilli()
	for _, n := range dom.FindAll(p.doc, dom.Class("save-notice")) {
		exp, err := strconv.ParseInt(dom.Attr(n, "data-expires"), 10, 64)
		if err != nil || exp <= now {
			dom.Detach(n)
		}
	}
}
