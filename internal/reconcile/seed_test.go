package reconcile

import (
	"context"
	"testing"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/markup"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const projectsPage = `<html><body><main>
<div class="project"><h2> Solar Car </h2><img src="images/car.png"><div>Races in May.<br>Cost: $1,200</div></div>
<div class="project"><h2>Drone</h2><div>Flies.</div></div>
</main></body></html>`

func TestSeedIfEmpty_PublicProjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)

	c, err := r.SeedIfEmpty(ctx, content.Projects, parse(t, projectsPage), PublicPage)
	require.NoError(t, err)
	want := content.Collection{
		{"title": "Solar Car", "image": "images/car.png", "description": "Races in May.", "cost": "$1,200"},
		{"title": "Drone", "image": "", "description": "Flies.", "cost": ""},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("seed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, r.Collection(ctx, content.Projects)); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedIfEmpty_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	doc := parse(t, projectsPage)

	first, err := r.SeedIfEmpty(ctx, content.Projects, doc, PublicPage)
	require.NoError(t, err)
	_, err = r.SaveAt(ctx, content.Projects, 0, content.Record{"title": "Edited"})
	require.NoError(t, err)

	second, err := r.SeedIfEmpty(ctx, content.Projects, doc, PublicPage)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	require.Equal(t, "Edited", second[0]["title"], "second seed must not overwrite stored data")
}

func TestSeedIfEmpty_EmptiedKindIsNotReseeded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	doc := parse(t, projectsPage)

	_, err := r.SeedIfEmpty(ctx, content.Projects, doc, PublicPage)
	require.NoError(t, err)
	for len(r.Collection(ctx, content.Projects)) > 0 {
		_, err := r.RemoveAt(ctx, content.Projects, 0)
		require.NoError(t, err)
	}

	c, err := r.SeedIfEmpty(ctx, content.Projects, doc, PublicPage)
	require.NoError(t, err)
	require.Empty(t, c)
}

func TestSeedIfEmpty_MalformedStorageReseeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, store := newReconciler(t)
	require.NoError(t, store.Set(ctx, content.Projects.StorageKey(), "{not json"))

	c, err := r.SeedIfEmpty(ctx, content.Projects, parse(t, projectsPage), PublicPage)
	require.NoError(t, err)
	require.Len(t, c, 2)
}

func TestSeedIfEmpty_NothingToSeedPersistsNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, store := newReconciler(t)

	c, err := r.SeedIfEmpty(ctx, content.Members, parse(t, `<main></main>`), PublicPage)
	require.NoError(t, err)
	require.Empty(t, c)
	_, ok, _ := store.Get(ctx, content.Members.StorageKey())
	require.False(t, ok)
}

func TestSeedIfEmpty_ThreeStaticMembers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	doc := parse(t, `<main><div class="member-container">
<div class="member"><img src="a.jpg"><h3>Ana</h3><p>Role: Lead</p><p>Teams: Mech</p><p>Bio: Builds</p></div>
<div class="member"><h3>Bo</h3><p>role:Coder</p></div>
<div class="member"><h3>Cy</h3></div>
</div></main>`)

	c, err := r.SeedIfEmpty(ctx, content.Members, doc, PublicPage)
	require.NoError(t, err)
	require.Len(t, c, 3)
	require.Equal(t, content.Record{"image": "a.jpg", "name": "Ana", "role": "Lead", "teams": "Mech", "bio": "Builds"}, c[0])
	require.Equal(t, "Coder", c[1]["role"])
	require.Len(t, r.Collection(ctx, content.Members), 3)
}

func TestPublicPage_DisplayMarkupRoundTrips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mk := markup.Must()

	lists := map[content.Kind]content.Collection{
		content.Projects: {
			{"title": "Boat & Co", "image": "images/boat.png", "description": "Fast <b>boat</b>", "cost": "$40 & up"},
			{"title": "Kite", "image": "", "description": "Light", "cost": ""},
		},
		content.Members: {
			{"name": "Ana", "image": "data:image/png;base64,AAAA", "role": "Lead", "teams": "Mech, Code", "bio": "Likes <robots>"},
		},
	}
	for kind, want := range lists {
		nodes, err := mk.Display(kind, want)
		require.NoError(t, err)
		got, err := PublicPage(ctx, kind, mainWith(t, nodes))
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s round trip (-want +got):\n%s", kind, diff)
		}
	}
}

func TestPublicPage_FinancesRoundTrips(t *testing.T) {
	t.Parallel()

	want := content.Settings{
		Budget: 5000, TotalExpenses: 3200, Remaining: 1800,
		Slice1Label: "Parts", Slice1Value: 2000,
		Slice2Label: "Travel", Slice2Value: 1000,
		Slice3Label: "Food", Slice3Value: 200,
		CoveredValue: 900, CoverageRemaining: 100,
		FTCTitle: "Junior team", FTCImageData: "data:image/png;base64,AAAA", FTCProgress: 40,
		FTCDetails:    "Parts **ordered**\nwaiting on motors",
		DonateContact: "coach@example.org",
		InstagramURL:  "https://instagram.com/team",
		OtherItems:    []content.OtherItem{{Label: "Shirts", Value: 120}, {Label: "Banner", Value: 35.5}},
	}
	nodes, err := markup.Must().DisplaySettings(want)
	require.NoError(t, err)

	c, err := PublicPage(context.Background(), content.Finances, mainWith(t, nodes))
	require.NoError(t, err)
	require.Len(t, c, 1)
	require.Equal(t, want, content.SettingsFromRecord(c[0]))
}

func TestSeedIfEmpty_FinancesImportsLegacyOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, store := newReconciler(t)
	require.NoError(t, store.Set(ctx, content.Finances.StorageKey(), `[{"budget":"800","expenses":300}]`))
	doc := parse(t, `<main></main>`)

	c, err := r.SeedIfEmpty(ctx, content.Finances, doc, PublicPage)
	require.NoError(t, err)
	require.Len(t, c, 1)
	s := r.Settings(ctx)
	require.Equal(t, content.Amount(800), s.Budget)
	require.Equal(t, content.Amount(300), s.TotalExpenses)

	_, err = r.SaveAt(ctx, content.Finances, 0, content.Record{"budget": "10"})
	require.NoError(t, err)
	_, err = r.SeedIfEmpty(ctx, content.Finances, doc, PublicPage)
	require.NoError(t, err)
	require.Equal(t, content.Amount(10), r.Settings(ctx).Budget, "legacy data must import only once")
}

func TestEditForms_SeedsFromStaticForms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newReconciler(t)
	mk := markup.Must()

	doc := parse(t, `<div id="forms-root"></div>`)
	root := dom.ByID(doc, "forms-root")
	for i, rec := range []content.Record{
		{"title": "One", "image": "images/one.png", "cost": "5", "description": "first"},
		{"title": "Two", "cost": "", "description": ""},
	} {
		f, err := mk.Form(content.Projects, i, rec)
		require.NoError(t, err)
		dom.Append(root, f)
	}

	c, err := r.SeedIfEmpty(ctx, content.Projects, doc, EditForms)
	require.NoError(t, err)
	want := content.Collection{
		{"title": "One", "image": "images/one.png", "cost": "5", "description": "first"},
		{"title": "Two", "cost": "", "description": ""},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("edit form seed (-want +got):\n%s", diff)
	}
}

func mainWith(t *testing.T, nodes []*html.Node) *html.Node {
	t.Helper()
	doc := parse(t, `<html><body><main></main></body></html>`)
	dom.Append(dom.Find(doc, dom.Tag("main")), nodes...)
	return doc
}
