// Package editor owns the edit page document: it seeds and rebuilds the
// per-kind sections, binds handlers to the generated controls, and
// dispatches submitted events to them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"sitekeeper/internal/codec"
	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/reconcile"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrUnbound is returned when an event targets a node with no handler.
var ErrUnbound = errors.New("editor: no handler bound")

// DefaultNoticeTTL is how long feedback notices stay on the page.
const DefaultNoticeTTL = 3 * time.Second

const (
	evSubmit = "submit"
	evClick  = "click"
	evChange = "change"
)

// Event carries what the browser sent with an interaction.
type Event struct {
	Values content.Record
	Files  codec.Files
}

type handler func(ctx context.Context, ev Event) error

type Config struct {
	NoticeTTL time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
}

// Page is the live edit document. All access goes through its mutex, so
// interactions are applied one at a time.
type Page struct {
	mu       sync.Mutex
	doc      *html.Node
	root     *html.Node
	handlers map[*html.Node]map[string]handler
	// pending holds previewed image data per file input until the owning
	// form is saved or rebuilt.
	pending map[*html.Node]string

	rec *reconcile.Reconciler
	ttl time.Duration
	now func() time.Time
	log *zap.Logger
}

func New(rec *reconcile.Reconciler, cfg Config) *Page {
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Page{
		rec:      rec,
		ttl:      cfg.NoticeTTL,
		now:      cfg.Now,
		log:      cfg.Logger,
		handlers: map[*html.Node]map[string]handler{},
		pending:  map[*html.Node]string{},
	}
}

// Load parses src as the edit page, seeds each kind from any static edit
// forms it contains, rebuilds every section from storage and binds the
// controls. A page without #forms-root is kept as is.
func (p *Page) Load(ctx context.Context, src io.Reader) error {
	doc, err := dom.Parse(src)
	if err != nil {
		return fmt.Errorf("parse edit page: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.doc = doc
	p.root = dom.ByID(doc, "forms-root")
	p.handlers = map[*html.Node]map[string]handler{}
	p.pending = map[*html.Node]string{}

	if p.root == nil {
		p.log.Warn("edit page has no editor", zap.Error(dom.MissingAnchor("#forms-root")))
		return nil
	}
	for _, kind := range content.Kinds() {
		if _, err := p.rec.SeedIfEmpty(ctx, kind, doc, reconcile.EditForms); err != nil {
			p.log.Warn("seeding from edit page", zap.String("kind", kind.String()), zap.Error(err))
		}
		for _, f := range dom.FindAll(doc, reconcile.FormsOf(kind)) {
			dom.Detach(f)
		}
		if err := p.rebuild(ctx, kind); err != nil {
			return err
		}
	}
	p.bindAddControls()
	return nil
}

// Render sweeps expired notices and writes the document.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc == nil {
		return errors.New("editor: page not loaded")
	}
	p.sweepNotices()
	return dom.Render(w, p.doc)
}

// rebuild re-renders the section for kind and binds the new forms. Handlers
// on nodes that left the document are dropped.
func (p *Page) rebuild(ctx context.Context, kind content.Kind) error {
	forms, err := p.rec.RebuildSection(ctx, kind, p.root)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", kind, err)
	}
	p.prune()
	for _, f := range forms {
		p.BindForm(f)
	}
	return nil
}

func (p *Page) prune() {
	for n := range p.handlers {
		if !dom.Contains(p.doc, n) {
			delete(p.handlers, n)
		}
	}
	for n := range p.pending {
		if !dom.Contains(p.doc, n) {
			delete(p.pending, n)
		}
	}
}

func (p *Page) on(n *html.Node, event string, h handler) {
	hs := p.handlers[n]
	if hs == nil {
		hs = map[string]handler{}
		p.handlers[n] = hs
	}
	hs[event] = h
}

func (p *Page) dispatch(ctx context.Context, n *html.Node, event string, ev Event) error {
	h := p.handlers[n][event]
	if h == nil {
		return fmt.Errorf("%w: %s on <%s>", ErrUnbound, event, n.Data)
	}
	return h(ctx, ev)
}

// BindForm attaches the submit handler, a change handler per file input,
// and the handlers of the form's own controls.
func (p *Page) BindForm(form *html.Node) {
	p.on(form, evSubmit, func(ctx context.Context, ev Event) error {
		return p.submit(ctx, form, ev)
	})
	for _, f := range dom.Fields(form) {
		if !dom.IsFileInput(f) {
			continue
		}
		p.on(f, evChange, func(ctx context.Context, ev Event) error {
			return p.preview(form, f, ev)
		})
	}
	if btn := dom.Find(form, dom.Class("remove-entry")); btn != nil {
		p.BindRemoveControl(btn)
	}
	if btn := dom.ByID(form, "add-finance-item"); btn != nil {
		p.on(btn, evClick, func(ctx context.Context, _ Event) error {
			return p.addItem(ctx)
		})
	}
	for _, row := range dom.FindAll(form, dom.Class("other-item-row")) {
		btn := dom.Find(row, dom.Class("remove-item"))
		if btn == nil {
			continue
		}
		p.on(btn, evClick, func(ctx context.Context, _ Event) error {
			i, err := strconv.Atoi(dom.Attr(row, "data-item-index"))
			if err != nil {
				return fmt.Errorf("item index: %w", err)
			}
			return p.removeItem(ctx, i)
		})
	}
}

// BindRemoveControl makes button remove its owning form's record.
func (p *Page) BindRemoveControl(button *html.Node) {
	p.on(button, evClick, func(ctx context.Context, _ Event) error {
		form := dom.Closest(button, dom.Tag("form"))
		if form == nil {
			return dom.MissingAnchor("form owning remove control")
		}
		return p.remove(ctx, form)
	})
}

func (p *Page) bindAddControls() {
	for id, kind := range map[string]content.Kind{"add-project": content.Projects, "add-member": content.Members} {
		btn := dom.ByID(p.doc, id)
		if btn == nil {
			p.log.Debug("add control not on page", zap.String("id", id))
			continue
		}
		p.on(btn, evClick, func(ctx context.Context, _ Event) error {
			return p.add(ctx, kind)
		})
	}
}
