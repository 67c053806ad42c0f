package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sitekeeper/internal/codec"
	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/reconcile"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	msgSaved         = "Saved locally. Open the target page to view changes."
	msgSavedNoImages = "Saved locally without images: storage is full."
	msgSaveFailed    = "Could not save: storage is full."
	msgNotImage      = "The selected file is not an image."
)

// Submit dispatches a form submission for the form at (kind, index). A form
// that is not on the page is a no-op.
func (p *Page) Submit(ctx context.Context, kind content.Kind, index int, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	form := p.form(kind, index)
	if form == nil {
		return nil
	}
	return p.dispatch(ctx, form, evSubmit, ev)
}

// Remove dispatches a click on the remove control of the form at
// (kind, index).
func (p *Page) Remove(ctx context.Context, kind content.Kind, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	form := p.form(kind, index)
	if form == nil {
		return nil
	}
	btn := dom.Find(form, dom.Class("remove-entry"))
	if btn == nil {
		return dom.MissingAnchor("remove control for " + kind.String())
	}
	return p.dispatch(ctx, btn, evClick, Event{})
}

// Add dispatches a click on the add control of kind.
func (p *Page) Add(ctx context.Context, kind content.Kind) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	btn := p.byID(addControlID(kind))
	if btn == nil {
		return dom.MissingAnchor("add control for " + kind.String())
	}
	return p.dispatch(ctx, btn, evClick, Event{})
}

// Preview dispatches a file selection on field of the form at (kind, index).
// Values posted alongside are applied to the form as typed input.
func (p *Page) Preview(ctx context.Context, kind content.Kind, index int, field string, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	form := p.form(kind, index)
	if form == nil {
		return nil
	}
	input := dom.FieldByName(form, field)
	if input == nil || !dom.IsFileInput(input) {
		return dom.MissingAnchor("file input " + field)
	}
	return p.dispatch(ctx, input, evChange, ev)
}

// AddItem dispatches a click on the finances add-item control.
func (p *Page) AddItem(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	btn := p.byID("add-finance-item")
	if btn == nil {
		return dom.MissingAnchor("#add-finance-item")
	}
	return p.dispatch(ctx, btn, evClick, Event{})
}

// RemoveItem dispatches a click on the remove control of finance item
// index. An item that is not on the page is a no-op.
func (p *Page) RemoveItem(ctx context.Context, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	form := p.form(content.Finances, 0)
	if form == nil {
		return nil
	}
	row := dom.Find(form, dom.And(dom.Class("other-item-row"), dom.AttrEq("data-item-index", strconv.Itoa(index))))
	if row == nil {
		return nil
	}
	btn := dom.Find(row, dom.Class("remove-item"))
	if btn == nil {
		return dom.MissingAnchor("remove control for finance item")
	}
	return p.dispatch(ctx, btn, evClick, Event{})
}

func (p *Page) form(kind content.Kind, index int) *html.Node {
	if p.root == nil {
		return nil
	}
	return dom.Find(p.root, dom.And(reconcile.FormsOf(kind), dom.AttrEq("data-index", strconv.Itoa(index))))
}

func (p *Page) byID(id string) *html.Node {
	if p.doc == nil {
		return nil
	}
	return dom.ByID(p.doc, id)
}

func addControlID(kind content.Kind) string {
	switch kind {
	case content.Projects:
		return "add-project"
	case content.Members:
		return "add-member"
	}
	return "add-" + kind.Singular()
}

// submit saves the form's record. Posted values are applied to the form
// first, the way a browser holds typed input. Image fields without a new
// selection take the previewed image, or else keep their stored value. A write rejected for quota is retried
// once without embedded images; a final failure leaves the form as typed
// and shows a failure notice.
func (p *Page) submit(ctx context.Context, form *html.Node, ev Event) error {
	kind, index, err := reconcile.FormPosition(form)
	if err != nil {
		return err
	}
	applyValues(form, ev.Values)

	rec, err := codec.ExtractRecord(ctx, form, ev.Files)
	if err != nil {
		p.log.Warn("reading submitted files", zap.String("kind", kind.String()), zap.Int("index", index), zap.Error(err))
		p.notify(form, msgNotImage, true)
		return nil
	}
	p.keepPendingImages(form, rec)
	p.keepStoredImages(ctx, kind, index, rec)

	msg := msgSaved
	_, err = p.rec.SaveAt(ctx, kind, index, rec)
	if errors.Is(err, content.ErrQuotaExceeded) {
		p.log.Warn("save rejected, retrying without images", zap.String("kind", kind.String()), zap.Int("index", index), zap.Error(err))
		msg = msgSavedNoImages
		_, err = p.rec.SaveAt(ctx, kind, index, rec.WithoutImageData())
	}
	if err != nil {
		p.log.Error("save failed", zap.String("kind", kind.String()), zap.Int("index", index), zap.Error(err))
		p.notify(form, msgSaveFailed, true)
		return nil
	}

	if err := p.rebuild(ctx, kind); err != nil {
		return err
	}
	if f := p.form(kind, index); f != nil {
		p.notify(f, msg, false)
	}
	return nil
}

func applyValues(form *html.Node, values content.Record) {
	for _, f := range dom.Fields(form) {
		if dom.IsFileInput(f) {
			continue
		}
		if v, ok := values[dom.Attr(f, "name")]; ok {
			dom.SetFieldValue(f, v)
		}
	}
}

func (p *Page) keepPendingImages(form *html.Node, rec content.Record) {
	for _, f := range dom.Fields(form) {
		if !dom.IsFileInput(f) {
			continue
		}
		name := dom.Attr(f, "name")
		if _, ok := rec[name]; ok {
			continue
		}
		if v, ok := p.pending[f]; ok {
			rec[name] = v
		}
	}
}

func (p *Page) keepStoredImages(ctx context.Context, kind content.Kind, index int, rec content.Record) {
	c := p.rec.Collection(ctx, kind)
	if index < 0 || index >= len(c) {
		return
	}
	for _, field := range kind.ImageFields() {
		if _, ok := rec[field]; ok {
			continue
		}
		if v := c[index].Get(field); v != "" {
			rec[field] = v
		}
	}
}

// preview shows the selected image in the form without saving it. The
// image is kept as the input's pending selection for the next save.
func (p *Page) preview(form, input *html.Node, ev Event) error {
	applyValues(form, ev.Values)
	field := dom.Attr(input, "name")
	f, ok := ev.Files[field]
	if !ok {
		return nil
	}
	data, err := codec.ImageData(f)
	if err != nil {
		p.log.Debug("preview rejected", zap.String("field", field), zap.Error(err))
		p.notify(form, msgNotImage, true)
		return nil
	}
	if err := codec.ShowPreview(form, field, data); err != nil {
		return err
	}
	p.pending[input] = data
	return nil
}

func (p *Page) remove(ctx context.Context, form *html.Node) error {
	kind, index, err := reconcile.FormPosition(form)
	if err != nil {
		return err
	}
	removed, err := p.rec.RemoveAt(ctx, kind, index)
	if err != nil {
		p.log.Error("remove failed", zap.String("kind", kind.String()), zap.Int("index", index), zap.Error(err))
		p.notify(form, "Could not remove: "+err.Error(), true)
		return nil
	}
	dom.Detach(form)
	if err := p.rebuild(ctx, kind); err != nil {
		return err
	}
	if removed {
		p.notifyPage(capitalize(kind.Singular()) + " removed")
	}
	return nil
}

func (p *Page) add(ctx context.Context, kind content.Kind) error {
	if _, err := p.rec.Add(ctx, kind, content.Record{}); err != nil {
		p.log.Error("add failed", zap.String("kind", kind.String()), zap.Error(err))
		p.notifyPage(fmt.Sprintf("Could not add %s: %v", kind.Singular(), err))
		return nil
	}
	if err := p.rebuild(ctx, kind); err != nil {
		return err
	}
	p.notifyPage(capitalize(kind.Singular()) + " added")
	return nil
}

func (p *Page) addItem(ctx context.Context) error {
	if _, err := p.rec.AddItem(ctx, content.OtherItem{}); err != nil {
		p.log.Error("add finance item failed", zap.Error(err))
		if f := p.form(content.Finances, 0); f != nil {
			p.notify(f, msgSaveFailed, true)
		}
		return nil
	}
	return p.rebuild(ctx, content.Finances)
}

func (p *Page) removeItem(ctx context.Context, index int) error {
	if _, err := p.rec.RemoveItemAt(ctx, index); err != nil {
		p.log.Error("remove finance item failed", zap.Int("index", index), zap.Error(err))
		return nil
	}
	return p.rebuild(ctx, content.Finances)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
