package kv

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openStores(t *testing.T, quota int64) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.sqlite"), quota)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"mem":    NewMem(quota),
		"sqlite": sq,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "page:projects"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}
			if err := s.Set(ctx, "page:projects", `[{"title":"A"}]`); err != nil {
				t.Fatalf("set: %v", err)
			}
			v, ok, err := s.Get(ctx, "page:projects")
			if err != nil || !ok || v != `[{"title":"A"}]` {
				t.Fatalf("unexpected get: v=%q ok=%v err=%v", v, ok, err)
			}
			if err := s.Set(ctx, "finances_data", `{}`); err != nil {
				t.Fatalf("set: %v", err)
			}
			keys, err := s.Keys(ctx)
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if strings.Join(keys, ",") != "finances_data,page:projects" {
				t.Fatalf("unexpected keys: %v", keys)
			}
			if err := s.Delete(ctx, "page:projects"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "page:projects"); ok {
				t.Fatalf("expected key deleted")
			}
		})
	}
}

func TestStore_QuotaRejectsWithoutChangingState(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t, 64) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "page:members", `[{"name":"Ana"}]`); err != nil {
				t.Fatalf("small write should fit: %v", err)
			}
			big := strings.Repeat("x", 128)
			err := s.Set(ctx, "page:members", big)
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("expected ErrQuotaExceeded, got %v", err)
			}
			v, _, _ := s.Get(ctx, "page:members")
			if v != `[{"name":"Ana"}]` {
				t.Fatalf("rejected write must not change value, got %q", v)
			}
		})
	}
}

func TestStore_QuotaCountsReplacedValueOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t, 40) {
		t.Run(name, func(t *testing.T) {
			// 10-byte key + 25-byte value fits; overwriting it with another
			// 25-byte value must not double count the old one.
			val := strings.Repeat("a", 25)
			if err := s.Set(ctx, "0123456789", val); err != nil {
				t.Fatalf("first write: %v", err)
			}
			if err := s.Set(ctx, "0123456789", strings.Repeat("b", 25)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
		})
	}
}

func TestMem_UsedTracksDeletes(t *testing.T) {
	ctx := context.Background()
	m := NewMem(0)
	_ = m.Set(ctx, "k", "value")
	if m.Used() != 6 {
		t.Fatalf("expected 6 used bytes, got %d", m.Used())
	}
	_ = m.Delete(ctx, "k")
	if m.Used() != 0 {
		t.Fatalf("expected 0 used bytes, got %d", m.Used())
	}
}
