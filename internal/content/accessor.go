package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sitekeeper/internal/kv"

	"go.uber.org/zap"
)

var (
	// ErrMalformed marks stored data that does not parse as the expected
	// shape. Readers recover by treating it as empty.
	ErrMalformed = errors.New("content: malformed stored data")

	// ErrQuotaExceeded marks a write rejected by the store's capacity limit.
	ErrQuotaExceeded = errors.New("content: storage quota exceeded")
)

// Accessor reads and writes collections and the finances settings.
type Accessor struct {
	store kv.Store
	log   *zap.Logger
}

func NewAccessor(store kv.Store, log *zap.Logger) *Accessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accessor{store: store, log: log}
}

func (a *Accessor) Store() kv.Store { return a.store }

// ReadCollection returns the stored collection for kind. Absent, unreadable
// and malformed data all read as an empty collection.
func (a *Accessor) ReadCollection(ctx context.Context, kind Kind) Collection {
	c, _, err := a.readCollection(ctx, kind)
	if err != nil {
		a.log.Warn("discarding stored collection", zap.String("kind", kind.String()), zap.Error(err))
		return Collection{}
	}
	return c
}

// HasCollection reports whether kind has parseable stored data, even if
// that data is an empty array.
func (a *Accessor) HasCollection(ctx context.Context, kind Kind) bool {
	_, ok, err := a.readCollection(ctx, kind)
	return ok && err == nil
}

func (a *Accessor) readCollection(ctx context.Context, kind Kind) (Collection, bool, error) {
	raw, ok, err := a.store.Get(ctx, kind.StorageKey())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return Collection{}, false, nil
	}
	var c Collection
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", ErrMalformed, kind.StorageKey(), err)
	}
	if c == nil {
		c = Collection{}
	}
	return c, true, nil
}

func (a *Accessor) WriteCollection(ctx context.Context, kind Kind, c Collection) error {
	if c == nil {
		c = Collection{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return a.set(ctx, kind.StorageKey(), b)
}

// ReadSettings returns the finances settings and whether they were stored.
func (a *Accessor) ReadSettings(ctx context.Context) (Settings, bool) {
	raw, ok, err := a.store.Get(ctx, SettingsKey)
	if err != nil {
		a.log.Warn("reading finances settings", zap.Error(err))
		return Settings{}, false
	}
	if !ok {
		return Settings{}, false
	}
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		a.log.Warn("discarding stored finances settings",
			zap.Error(fmt.Errorf("%w: %s: %v", ErrMalformed, SettingsKey, err)))
		return Settings{}, false
	}
	return s, true
}

func (a *Accessor) WriteSettings(ctx context.Context, s Settings) error {
	if s.OtherItems == nil {
		s.OtherItems = []OtherItem{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return a.set(ctx, SettingsKey, b)
}

// Clear removes the stored data for kind. Clearing finances removes both the
// settings and any array stored under the finances page key.
func (a *Accessor) Clear(ctx context.Context, kind Kind) error {
	if err := a.store.Delete(ctx, kind.StorageKey()); err != nil {
		return err
	}
	if kind == Finances {
		return a.store.Delete(ctx, SettingsKey)
	}
	return nil
}

func (a *Accessor) set(ctx context.Context, key string, b []byte) error {
	err := a.store.Set(ctx, key, string(b))
	if errors.Is(err, kv.ErrQuotaExceeded) {
		return fmt.Errorf("%w: %s (%d bytes): %w", ErrQuotaExceeded, key, len(b), err)
	}
	return err
}
