// Package render rebuilds the display region of public pages from stored
// content.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/reconcile"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type Renderer struct {
	rec *reconcile.Reconciler
	log *zap.Logger
}

func New(rec *reconcile.Reconciler, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{rec: rec, log: log}
}

func (r *Renderer) Reconciler() *reconcile.Reconciler { return r.rec }

// RenderKind seeds kind from the page's own markup when nothing is stored,
// then replaces the children of <main> with display markup for the stored
// records. Finances shows the settings; with no settings stored, <main> is
// left alone.
func (r *Renderer) RenderKind(ctx context.Context, kind content.Kind, doc *html.Node) error {
	seeded, err := r.rec.SeedIfEmpty(ctx, kind, doc, reconcile.PublicPage)
	if err != nil {
		r.log.Warn("seeding from public page", zap.String("kind", kind.String()), zap.Error(err))
	}

	main := dom.Find(doc, dom.Tag("main"))
	if main == nil {
		return dom.MissingAnchor("<main>")
	}

	c := r.rec.Collection(ctx, kind)
	if len(c) == 0 && len(seeded) > 0 {
		// The seed could not be stored; show it rather than an empty page.
		c = seeded
	}
	if kind == content.Finances && len(c) == 0 {
		return nil
	}

	nodes, err := r.rec.Markup().Display(kind, c)
	if err != nil {
		return fmt.Errorf("display %s: %w", kind, err)
	}
	dom.RemoveChildren(main)
	dom.Append(main, nodes...)
	return nil
}

// Page renders src as the public page for kind. A page without <main> is
// returned as parsed.
func (r *Renderer) Page(ctx context.Context, kind content.Kind, src []byte) ([]byte, error) {
	doc, err := dom.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", kind, err)
	}
	if err := r.RenderKind(ctx, kind, doc); err != nil {
		if !errors.Is(err, dom.ErrMissingAnchor) {
			return nil, err
		}
		r.log.Debug("page has no display region", zap.String("kind", kind.String()), zap.Error(err))
	}
	var b bytes.Buffer
	if err := dom.Render(&b, doc); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
