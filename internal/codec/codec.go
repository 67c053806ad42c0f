// Package codec converts between edit form controls and content records.
package codec

import (
	"context"
	"fmt"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/markup"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// ExtractRecord reads every named control of form into a record. File
// inputs contribute only when files holds a selection for them; those are
// read concurrently and merged after all reads succeed, so a failed read
// leaves no image field half-applied.
func ExtractRecord(ctx context.Context, form *html.Node, files Files) (content.Record, error) {
	rec := content.Record{}
	var selected []string
	for _, f := range dom.Fields(form) {
		name := dom.Attr(f, "name")
		switch dom.InputType(f) {
		case "file":
			if _, ok := files[name]; ok {
				selected = append(selected, name)
			}
			continue
		case "checkbox", "radio":
			if !dom.HasAttr("checked")(f) {
				continue
			}
		}
		rec[name] = dom.FieldValue(f)
	}
	if len(selected) == 0 {
		return rec, nil
	}

	encoded := make([]string, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := ImageData(files[name])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			encoded[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, name := range selected {
		rec[name] = encoded[i]
	}
	return rec, nil
}

// RenderFieldsInto shows rec in form: each control gets its field value
// (absent fields become "" or "0" for number inputs) and each preview image
// is shown only when its field holds an image.
func RenderFieldsInto(form *html.Node, rec content.Record) {
	for _, f := range dom.Fields(form) {
		if dom.IsFileInput(f) {
			continue
		}
		name := dom.Attr(f, "name")
		v, ok := rec[name]
		if !ok && dom.InputType(f) == "number" {
			v = "0"
		}
		dom.SetFieldValue(f, v)
	}
	for _, img := range dom.FindAll(form, dom.HasAttr("data-preview-for")) {
		setPreview(img, rec.Get(dom.Attr(img, "data-preview-for")))
	}
}

// ShowPreview points the preview image of field at src.
func ShowPreview(form *html.Node, field, src string) error {
	img := dom.Find(form, dom.AttrEq("data-preview-for", field))
	if img == nil {
		return dom.MissingAnchor("preview image for " + field)
	}
	setPreview(img, src)
	return nil
}

func setPreview(img *html.Node, src string) {
	u := string(markup.ImageURL(src))
	dom.SetAttr(img, "src", u)
	if u == "" {
		dom.SetAttr(img, "hidden", "")
		return
	}
	dom.RemoveAttr(img, "hidden")
}
