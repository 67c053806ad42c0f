package content

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"sitekeeper/internal/kv"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"projects", " Members ", "FINANCES"} {
		if _, err := ParseKind(in); err != nil {
			t.Fatalf("ParseKind(%q): %v", in, err)
		}
	}
	if _, err := ParseKind("events"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if Projects.StorageKey() != "page:projects" {
		t.Fatalf("unexpected storage key: %s", Projects.StorageKey())
	}
}

func TestCollection_UnmarshalCoercesShapes(t *testing.T) {
	t.Parallel()

	var c Collection
	in := `[{"title":"A","cost":1200,"draft":true,"gone":null,"nested":{"x":1}}, null, 7, {"title":"C"}]`
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c) != 4 {
		t.Fatalf("positions must be preserved, got %d records", len(c))
	}
	if c[0]["cost"] != "1200" || c[0]["draft"] != "true" {
		t.Fatalf("unexpected coercion: %+v", c[0])
	}
	if _, ok := c[0]["gone"]; ok {
		t.Fatalf("null fields must be dropped")
	}
	if _, ok := c[0]["nested"]; ok {
		t.Fatalf("nested fields must be dropped")
	}
	if len(c[1]) != 0 || len(c[2]) != 0 || c[3]["title"] != "C" {
		t.Fatalf("unexpected holes: %+v", c)
	}
}

func TestAccessor_ReadCollectionTreatsMalformedAsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := kv.NewMem(0)
	a := NewAccessor(store, nil)

	if got := a.ReadCollection(ctx, Members); len(got) != 0 {
		t.Fatalf("absent key should read empty, got %+v", got)
	}
	if a.HasCollection(ctx, Members) {
		t.Fatalf("absent key should not count as stored")
	}

	_ = store.Set(ctx, Members.StorageKey(), `{"not":"an array"`)
	if got := a.ReadCollection(ctx, Members); len(got) != 0 {
		t.Fatalf("malformed data should read empty, got %+v", got)
	}
	if a.HasCollection(ctx, Members) {
		t.Fatalf("malformed data should not count as stored")
	}

	_ = store.Set(ctx, Members.StorageKey(), `[]`)
	if !a.HasCollection(ctx, Members) {
		t.Fatalf("an empty array is stored data")
	}
}

func TestAccessor_WriteCollectionQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := NewAccessor(kv.NewMem(80), nil)
	if err := a.WriteCollection(ctx, Projects, Collection{{"title": "A"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := a.WriteCollection(ctx, Projects, Collection{{"image": "data:image/png;base64," + strings.Repeat("A", 200)}})
	if !errors.Is(err, ErrQuotaExceeded) || !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	got := a.ReadCollection(ctx, Projects)
	if len(got) != 1 || got[0]["title"] != "A" {
		t.Fatalf("rejected write must keep previous data, got %+v", got)
	}
}

func TestSettings_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	s := Settings{
		Budget:        12000,
		TotalExpenses: 4500.5,
		Slice1Label:   "Parts",
		Slice1Value:   3000,
		FTCTitle:      "Robot",
		FTCProgress:   40,
		DonateContact: "team@example.org",
		OtherItems: []OtherItem{
			{Label: "Travel", Value: 800},
			{Label: "Shirts", Value: 120},
		},
	}
	got := SettingsFromRecord(s.Record())
	if got.Budget != 12000 || got.TotalExpenses != 4500.5 || got.Slice1Label != "Parts" {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if len(got.OtherItems) != 2 || got.OtherItems[1].Label != "Shirts" || got.OtherItems[1].Value != 120 {
		t.Fatalf("unexpected other items: %+v", got.OtherItems)
	}
}

func TestSettingsFromRecord_ClosesItemGaps(t *testing.T) {
	t.Parallel()

	got := SettingsFromRecord(Record{
		OtherItemField(4, "label"): "B",
		OtherItemField(1, "label"): "A",
		OtherItemField(1, "value"): "$1,250",
		"otherItems.x.label":       "ignored",
	})
	if len(got.OtherItems) != 2 || got.OtherItems[0].Label != "A" || got.OtherItems[1].Label != "B" {
		t.Fatalf("unexpected items: %+v", got.OtherItems)
	}
	if got.OtherItems[0].Value != 1250 {
		t.Fatalf("expected lenient amount parse, got %v", got.OtherItems[0].Value)
	}
}

func TestSettings_DecodesNumericStrings(t *testing.T) {
	t.Parallel()

	var s Settings
	if err := json.Unmarshal([]byte(`{"budget":"1500","remaining":"n/a","totalExpenses":250}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Budget != 1500 || s.Remaining != 0 || s.TotalExpenses != 250 {
		t.Fatalf("unexpected amounts: %+v", s)
	}
}

func TestSettings_Slices(t *testing.T) {
	t.Parallel()

	s := Settings{Slice1Value: 1, Slice2Value: 1, Slice3Value: 2}
	sl := s.Slices()
	if sl[0].Percent != 25 || sl[2].Percent != 50 {
		t.Fatalf("unexpected slices: %+v", sl)
	}
	if (Settings{}).Slices()[0].Percent != 0 {
		t.Fatalf("zero total must give zero percent")
	}
}

func TestRecord_WithoutImageData(t *testing.T) {
	t.Parallel()

	r := Record{"title": "A", "image": "data:image/png;base64,AAAA", "cost": "5"}
	got := r.WithoutImageData()
	if _, ok := got["image"]; ok || got["title"] != "A" || got["cost"] != "5" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !r.HasImageData() || got.HasImageData() {
		t.Fatalf("HasImageData mismatch")
	}
}
