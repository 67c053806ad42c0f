package reconcile

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/kv"
	"sitekeeper/internal/markup"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func newReconciler(t *testing.T) (*Reconciler, kv.Store) {
	t.Helper()
	store := kv.NewMem(0)
	return New(content.NewAccessor(store, nil), markup.Must(), nil), store
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

// assertStamped checks that every form in root is stamped with its
// position and shows the record stored at that position.
func assertStamped(t *testing.T, r *Reconciler, kind content.Kind, root *html.Node, field string) {
	t.Helper()
	c := r.Collection(context.Background(), kind)
	forms := dom.FindAll(root, FormsOf(kind))
	if len(forms) != len(c) {
		t.Fatalf("%s: %d forms for %d records", kind, len(forms), len(c))
	}
	for i, f := range forms {
		if got := dom.Attr(f, "data-index"); got != strconv.Itoa(i) {
			t.Fatalf("%s: form %d stamped %q", kind, i, got)
		}
		if got := dom.FieldValue(dom.FieldByName(f, field)); got != c[i].Get(field) {
			t.Fatalf("%s: form %d shows %q, stored %q", kind, i, got, c[i].Get(field))
		}
	}
}

func TestAdd_EmptyStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)

	idx, err := r.Add(ctx, content.Members, content.Record{"name": "Ana"})
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	c := r.Collection(ctx, content.Members)
	require.Len(t, c, 1)
	require.Equal(t, "Ana", c[0]["name"])
}

func TestAdd_FinancesIsNotAList(t *testing.T) {
	t.Parallel()

	r, _ := newReconciler(t)
	_, err := r.Add(context.Background(), content.Finances, content.Record{})
	require.ErrorIs(t, err, ErrNotList)
}

func TestRemoveAt_ShiftsAndRestamps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	for _, title := range []string{"A", "B", "C"} {
		if _, err := r.Add(ctx, content.Projects, content.Record{"title": title}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	root := parse(t, `<div id="forms-root"></div>`)
	container := dom.ByID(root, "forms-root")
	if _, err := r.RebuildSection(ctx, content.Projects, container); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	removed, err := r.RemoveAt(ctx, content.Projects, 1)
	require.NoError(t, err)
	require.True(t, removed)
	forms, err := r.RebuildSection(ctx, content.Projects, container)
	require.NoError(t, err)

	c := r.Collection(ctx, content.Projects)
	if diff := cmp.Diff(content.Collection{{"title": "A"}, {"title": "C"}}, c); diff != "" {
		t.Fatalf("collection mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, forms, 2)
	require.Equal(t, "1", dom.Attr(forms[1], "data-index"))
	require.Equal(t, "C", dom.FieldValue(dom.FieldByName(forms[1], "title")))
	require.Len(t, dom.FindAll(container, SectionOf(content.Projects)), 1, "rebuild must reuse the section")
}

func TestRemoveAt_OutOfRangeIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	_, _ = r.Add(ctx, content.Members, content.Record{"name": "Ana"})

	for _, idx := range []int{-1, 1, 7} {
		removed, err := r.RemoveAt(ctx, content.Members, idx)
		require.NoError(t, err)
		require.False(t, removed, "index %d", idx)
	}
	require.Len(t, r.Collection(ctx, content.Members), 1)
}

func TestIndexInvariantAcrossOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	root := parse(t, `<div id="forms-root"></div>`)
	container := dom.ByID(root, "forms-root")

	ops := []struct {
		add    string
		remove int
	}{
		{add: "a"}, {add: "b"}, {add: "c"}, {remove: 0}, {add: "d"},
		{remove: 2}, {remove: 9}, {add: "e"}, {remove: 1}, {remove: 0}, {remove: 0}, {add: "f"},
	}
	for i, op := range ops {
		var err error
		if op.add != "" {
			_, err = r.Add(ctx, content.Members, content.Record{"name": op.add})
		} else {
			_, err = r.RemoveAt(ctx, content.Members, op.remove)
		}
		if err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		if _, err := r.RebuildSection(ctx, content.Members, container); err != nil {
			t.Fatalf("op %d rebuild: %v", i, err)
		}
		assertStamped(t, r, content.Members, root, "name")
	}
}

func TestSaveAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)

	tests := []struct {
		name  string
		index int
		saved bool
		want  []string
	}{
		{"append at len", 0, true, []string{"x0"}},
		{"replace", 0, true, []string{"x1"}},
		{"append again", 1, true, []string{"x1", "x2"}},
		{"beyond len", 5, false, []string{"x1", "x2"}},
		{"negative", -1, false, []string{"x1", "x2"}},
	}
	for i, tt := range tests {
		saved, err := r.SaveAt(ctx, content.Projects, tt.index, content.Record{"title": "x" + strconv.Itoa(i)})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if saved != tt.saved {
			t.Fatalf("%s: saved=%v, want %v", tt.name, saved, tt.saved)
		}
		var got []string
		for _, rec := range r.Collection(ctx, content.Projects) {
			got = append(got, rec["title"])
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestSaveAt_FinancesWritesSettings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, store := newReconciler(t)

	saved, err := r.SaveAt(ctx, content.Finances, 0, content.Record{"budget": "1200", "otherItems.0.label": "Pizza"})
	require.NoError(t, err)
	require.True(t, saved)
	require.Equal(t, content.Amount(1200), r.Settings(ctx).Budget)

	_, ok, _ := store.Get(ctx, content.Finances.StorageKey())
	require.False(t, ok, "finances must not be stored as an array")

	saved, err = r.SaveAt(ctx, content.Finances, 1, content.Record{"budget": "1"})
	require.NoError(t, err)
	require.False(t, saved)
}

func TestFinanceItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)

	for _, label := range []string{"Travel", "Food", "Parts"} {
		if _, err := r.AddItem(ctx, content.OtherItem{Label: label}); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}
	removed, err := r.RemoveItemAt(ctx, 1)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = r.RemoveItemAt(ctx, 2)
	require.NoError(t, err)
	require.False(t, removed)

	require.Equal(t, []content.OtherItem{{Label: "Travel"}, {Label: "Parts"}}, r.Settings(ctx).OtherItems)
}

func TestRebuildSection_FinancesAlwaysHasOneForm(t *testing.T) {
	t.Parallel()

	r, _ := newReconciler(t)
	root := parse(t, `<div id="forms-root"></div>`)
	forms, err := r.RebuildSection(context.Background(), content.Finances, dom.ByID(root, "forms-root"))
	require.NoError(t, err)
	require.Len(t, forms, 1)
	require.Equal(t, "0", dom.Attr(forms[0], "data-index"))
}

func TestRebuildSection_MissingContainer(t *testing.T) {
	t.Parallel()

	r, _ := newReconciler(t)
	_, err := r.RebuildSection(context.Background(), content.Projects, nil)
	require.ErrorIs(t, err, dom.ErrMissingAnchor)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Add(ctx, content.Projects, content.Record{"title": strconv.Itoa(i)})
		}()
	}
	wg.Wait()
	require.Len(t, r.Collection(ctx, content.Projects), n)
}
