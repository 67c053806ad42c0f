// Package reconcile keeps stored collections, their edit forms, and the
// forms' stamped indexes consistent across add, remove and save.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/markup"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrNotList is returned when a list operation targets the finances kind.
var ErrNotList = errors.New("reconcile: kind is not a list")

// Reconciler serializes every mutation of stored content. Each operation
// re-reads storage under the lock before it writes.
type Reconciler struct {
	mu     sync.Mutex
	acc    *content.Accessor
	markup *markup.Renderer
	log    *zap.Logger
}

func New(acc *content.Accessor, mk *markup.Renderer, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if mk == nil {
		mk = markup.Must()
	}
	return &Reconciler{acc: acc, markup: mk, log: log}
}

func (r *Reconciler) Accessor() *content.Accessor { return r.acc }

func (r *Reconciler) Markup() *markup.Renderer { return r.markup }

// Collection returns the current records for kind. Finances is viewed as a
// collection of at most one flattened settings record.
func (r *Reconciler) Collection(ctx context.Context, kind content.Kind) content.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collection(ctx, kind)
}

func (r *Reconciler) collection(ctx context.Context, kind content.Kind) content.Collection {
	if kind == content.Finances {
		s, ok := r.acc.ReadSettings(ctx)
		if !ok {
			return content.Collection{}
		}
		return content.Collection{s.Record()}
	}
	return r.acc.ReadCollection(ctx, kind)
}

// Settings returns the stored finances settings, zero when absent.
func (r *Reconciler) Settings(ctx context.Context) content.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, _ := r.acc.ReadSettings(ctx)
	return s
}

// SeedIfEmpty returns the stored collection for kind. When nothing parseable
// is stored, it derives records from doc with extract, persists them if
// there are any, and returns them. An empty stored array counts as stored,
// so a kind the user emptied is never re-seeded.
func (r *Reconciler) SeedIfEmpty(ctx context.Context, kind content.Kind, doc *html.Node, extract Extractor) (content.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == content.Finances {
		return r.seedSettings(ctx, doc, extract)
	}
	if r.acc.HasCollection(ctx, kind) {
		return r.acc.ReadCollection(ctx, kind), nil
	}
	c, err := extract(ctx, kind, doc)
	if err != nil {
		return content.Collection{}, fmt.Errorf("seed %s: %w", kind, err)
	}
	if len(c) == 0 {
		return content.Collection{}, nil
	}
	if err := r.acc.WriteCollection(ctx, kind, c); err != nil {
		return c, fmt.Errorf("seed %s: %w", kind, err)
	}
	r.log.Info("seeded collection", zap.String("kind", kind.String()), zap.Int("records", len(c)))
	return c, nil
}

func (r *Reconciler) seedSettings(ctx context.Context, doc *html.Node, extract Extractor) (content.Collection, error) {
	if s, ok := r.acc.ReadSettings(ctx); ok {
		return content.Collection{s.Record()}, nil
	}

	var (
		s      content.Settings
		source string
	)
	if legacy := r.acc.ReadCollection(ctx, content.Finances); len(legacy) > 0 && len(legacy[0]) > 0 {
		s, source = settingsFromLegacy(legacy[0]), "legacy"
	} else {
		c, err := extract(ctx, content.Finances, doc)
		if err != nil {
			return content.Collection{}, fmt.Errorf("seed finances: %w", err)
		}
		if len(c) == 0 || len(c[0]) == 0 {
			return content.Collection{}, nil
		}
		s, source = content.SettingsFromRecord(c[0]), "document"
	}
	if err := r.acc.WriteSettings(ctx, s); err != nil {
		return content.Collection{s.Record()}, fmt.Errorf("seed finances: %w", err)
	}
	r.log.Info("seeded finances settings", zap.String("source", source))
	return content.Collection{s.Record()}, nil
}

// settingsFromLegacy imports the first record of the old page:finances
// array, which used "expenses" for the expense total.
func settingsFromLegacy(rec content.Record) content.Settings {
	if _, ok := rec["totalExpenses"]; !ok {
		if v, ok := rec["expenses"]; ok {
			rec = rec.Clone()
			rec["totalExpenses"] = v
		}
	}
	return content.SettingsFromRecord(rec)
}

// Add appends rec and returns its index.
func (r *Reconciler) Add(ctx context.Context, kind content.Kind, rec content.Record) (int, error) {
	if !kind.IsList() {
		return 0, fmt.Errorf("add %s: %w", kind, ErrNotList)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.acc.ReadCollection(ctx, kind)
	if rec == nil {
		rec = content.Record{}
	}
	c = append(c, rec)
	if err := r.acc.WriteCollection(ctx, kind, c); err != nil {
		return 0, err
	}
	return len(c) - 1, nil
}

// RemoveAt removes the record at index. An index out of range, or a kind
// that is not a list, is a no-op.
func (r *Reconciler) RemoveAt(ctx context.Context, kind content.Kind, index int) (bool, error) {
	if !kind.IsList() {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.acc.ReadCollection(ctx, kind)
	if index < 0 || index >= len(c) {
		return false, nil
	}
	c = append(c[:index], c[index+1:]...)
	if err := r.acc.WriteCollection(ctx, kind, c); err != nil {
		return false, err
	}
	return true, nil
}

// SaveAt replaces the record at index. index == len appends; anything
// further is a no-op. Finances only has index 0 and saves the settings.
func (r *Reconciler) SaveAt(ctx context.Context, kind content.Kind, index int, rec content.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == content.Finances {
		if index != 0 {
			return false, nil
		}
		if err := r.acc.WriteSettings(ctx, content.SettingsFromRecord(rec)); err != nil {
			return false, err
		}
		return true, nil
	}

	c := r.acc.ReadCollection(ctx, kind)
	switch {
	case index < 0 || index > len(c):
		return false, nil
	case index == len(c):
		c = append(c, rec)
	default:
		c[index] = rec
	}
	if err := r.acc.WriteCollection(ctx, kind, c); err != nil {
		return false, err
	}
	return true, nil
}

// AddItem appends an additional finance item and returns its index.
func (r *Reconciler) AddItem(ctx context.Context, item content.OtherItem) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, _ := r.acc.ReadSettings(ctx)
	s.OtherItems = append(s.OtherItems, item)
	if err := r.acc.WriteSettings(ctx, s); err != nil {
		return 0, err
	}
	return len(s.OtherItems) - 1, nil
}

// RemoveItemAt removes the additional finance item at index. Out of range
// is a no-op.
func (r *Reconciler) RemoveItemAt(ctx context.Context, index int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.acc.ReadSettings(ctx)
	if !ok || index < 0 || index >= len(s.OtherItems) {
		return false, nil
	}
	s.OtherItems = append(s.OtherItems[:index], s.OtherItems[index+1:]...)
	if err := r.acc.WriteSettings(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildSection tears down every edit form for kind inside container and
// renders one form per stored record, stamped with its position. The
// section is created inside container when missing. Finances always gets
// exactly one form. The new forms are returned so handlers can be bound.
func (r *Reconciler) RebuildSection(ctx context.Context, kind content.Kind, container *html.Node) ([]*html.Node, error) {
	if container == nil {
		return nil, dom.MissingAnchor("section container for " + kind.String())
	}
	c := r.Collection(ctx, kind)
	if kind == content.Finances && len(c) == 0 {
		c = content.Collection{content.Record{}}
	}

	section, err := r.section(kind, container)
	if err != nil {
		return nil, err
	}
	for _, f := range dom.FindAll(section, FormsOf(kind)) {
		dom.Detach(f)
	}
	forms := make([]*html.Node, 0, len(c))
	for i, rec := range c {
		f, err := r.markup.Form(kind, i, rec)
		if err != nil {
			return nil, err
		}
		dom.Append(section, f)
		forms = append(forms, f)
	}
	r.log.Debug("rebuilt section", zap.String("kind", kind.String()), zap.Int("forms", len(forms)))
	return forms, nil
}

func (r *Reconciler) section(kind content.Kind, container *html.Node) (*html.Node, error) {
	m := SectionOf(kind)
	if m(container) {
		return container, nil
	}
	if s := dom.Find(container, m); s != nil {
		return s, nil
	}
	s, err := r.markup.Section(kind)
	if err != nil {
		return nil, err
	}
	dom.Append(container, s)
	return s, nil
}

// SectionOf matches the edit section of kind.
func SectionOf(kind content.Kind) dom.Matcher {
	return dom.And(dom.Class("edit-section"), dom.AttrEq("data-page", kind.String()))
}

// FormsOf matches the edit forms of kind.
func FormsOf(kind content.Kind) dom.Matcher {
	return dom.And(dom.Tag("form"), dom.Class("edit-form"), dom.AttrEq("data-page", kind.String()))
}

// FormPosition reads the kind and index stamped on an edit form.
func FormPosition(form *html.Node) (content.Kind, int, error) {
	kind, err := content.ParseKind(dom.Attr(form, "data-page"))
	if err != nil {
		return "", 0, err
	}
	index, err := strconv.Atoi(dom.Attr(form, "data-index"))
	if err != nil {
		return "", 0, fmt.Errorf("form data-index: %w", err)
	}
	return kind, index, nil
}
