package store

import (
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps entries in process memory using go-cache with no
// expiration. Nothing survives the process; it backs tests and throwaway runs.
type MemoryBackend struct {
	cache  *cache.Cache
	closed atomic.Bool
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := b.check(ctx); err != nil {
		return "", false, err
	}

	val, found := b.cache.Get(key)
	if !found {
		return "", false, nil
	}

	s, ok := val.(string)
	return s, ok, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := b.check(ctx); err != nil {
		return err
	}

	b.cache.Set(key, value, cache.NoExpiration)
	return nil
}

// SetIfAbsent implements Backend. go-cache's Add fails when the key exists,
// under the cache's own lock.
func (b *MemoryBackend) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := b.check(ctx); err != nil {
		return false, err
	}

	if err := b.cache.Add(key, value, cache.NoExpiration); err != nil {
		return false, nil
	}

	return true, nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.cache.Flush()
	}

	return nil
}

func (b *MemoryBackend) check(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}

	return checkContext(ctx)
}
