// Package storage defines the key-value contract behind browser-style local
// persistence, plus a quota guard shared by every backend.
package storage

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Put when the write would exceed the
	// storage quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// DefaultQuota mirrors the typical per-origin local storage allowance.
const DefaultQuota int64 = 5 << 20

// Store is a string-keyed byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Quota wraps a Store and rejects writes that would push the total size of
// keys and values above a limit. Sizes are learned from values observed
// through Get and Put.
type Quota struct {
	Store

	limit int64
	mu    sync.Mutex
	sizes map[string]int64
	used  int64
}

var _ Store = (*Quota)(nil)

// WithQuota wraps s. A non-positive limit disables the guard.
func WithQuota(s Store, limit int64) *Quota {
	return &Quota{Store: s, limit: limit, sizes: make(map[string]int64)}
}

// Used returns the bytes currently accounted for.
func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

func (q *Quota) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := q.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.track(key, entrySize(key, v))
	q.mu.Unlock()
	return v, nil
}

func (q *Quota) Put(ctx context.Context, key string, value []byte) error {
	size := entrySize(key, value)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && q.used-q.sizes[key]+size > q.limit {
		return errors.Wrapf(ErrQuotaExceeded, "put %q (%d bytes, limit %d)", key, size, q.limit)
	}
	if err := q.Store.Put(ctx, key, value); err != nil {
		return err
	}
	q.track(key, size)
	return nil
}

func (q *Quota) track(key string, size int64) {
	q.used += size - q.sizes[key]
	q.sizes[key] = size
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
