package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	file, err := NewFileBackend(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
	}
}

func TestBackend_GetSet(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "k", "v1"))
			require.NoError(t, b.Set(ctx, "k", "v2"))

			v, ok, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)
		})
	}
}

func TestBackend_SetIfAbsent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			stored, err := b.SetIfAbsent(ctx, "id", "first")
			require.NoError(t, err)
			assert.True(t, stored)

			stored, err = b.SetIfAbsent(ctx, "id", "second")
			require.NoError(t, err)
			assert.False(t, stored)

			v, _, err := b.Get(ctx, "id")
			require.NoError(t, err)
			assert.Equal(t, "first", v)
		})
	}
}

func TestBackend_SetIfAbsentConcurrent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wins atomic.Int32
			var wg sync.WaitGroup

			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					stored, err := b.SetIfAbsent(ctx, "id", string(rune('a'+i)))
					assert.NoError(t, err)
					if stored {
						wins.Add(1)
					}
				}(i)
			}

			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestBackend_Closed(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.Close())
			require.NoError(t, b.Close())

			_, _, err := b.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrBackendClosed)
			assert.ErrorIs(t, b.Set(ctx, "k", "v"), ErrBackendClosed)
		})
	}
}

func TestBackend_CancelledContext(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			assert.ErrorIs(t, b.Set(ctx, "k", "v"), context.Canceled)
			_, err := b.SetIfAbsent(ctx, "k", "v")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestFileBackend_Layout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.yaml")

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Path())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is created lazily")

	require.NoError(t, b.Set(ctx, KeyIdentity, "U99"))
	require.NoError(t, b.Set(ctx, KeyPoints, "42"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "player_id: U99")
	assert.Contains(t, string(raw), `points: "42"`)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileBackend_InvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a mapping\n"), 0644))

	_, err := NewFileBackend(path)
	assert.Error(t, err)
}

func TestFileBackend_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	b, err := NewFileBackend(path)
	require.NoError(t, err)

	_, ok, err := b.Get(context.Background(), KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}
