package kv

import (
	"context"
	"sort"
	"sync"
)

// Mem is an in-memory Store, used by tests and `--db :memory:`.
type Mem struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int64
	quota int64
}

// NewMem returns an empty store. A quota <= 0 disables the limit.
func NewMem(quota int64) *Mem {
	return &Mem{data: map[string]string{}, quota: quota}
}

func (m *Mem) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	return v, ok, nil
}

func (m *Mem) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if prev, ok := m.data[key]; ok {
		used -= entrySize(key, prev)
	}
	size := entrySize(key, value)
	if overQuota(m.quota, used, size) {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.used = used + size
	return nil
}

func (m *Mem) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if prev, ok := m.data[key]; ok {
		m.used -= entrySize(key, prev)
		delete(m.data, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Mem) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// Used reports the bytes currently counted against the quota.
func (m *Mem) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func (m *Mem) Close() error { return nil }
