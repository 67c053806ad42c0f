// Package kv is the string-keyed persistence substrate behind the editor.
//
// A Store behaves like browser local storage: synchronous string values,
// one flat key space, and a capacity limit that rejects writes once the
// stored bytes would exceed it.
package kv

import (
	"context"
	"errors"
)

// DefaultQuota mirrors the usual per-origin local storage budget.
const DefaultQuota int64 = 5 << 20

// ErrQuotaExceeded is returned by Set when the write would push the store
// past its quota. The store is left unchanged.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// entrySize is what an entry counts against the quota.
func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func overQuota(quota, used, incoming int64) bool {
	return quota > 0 && used+incoming > quota
}
