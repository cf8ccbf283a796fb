package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/internal/cache"
)

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	lru := cache.NewLRUBlockCache(1<<20, nil)
	s := NewCachingStore(inner, lru, 4)

	testStoreContract(t, NewCachingStore(NewMemoryStore(), cache.NewLRUBlockCache(1<<20, nil), 4))

	payload := []byte("0123456789abcdef-xyz")
	require.NoError(t, s.Put(ctx, "p", payload))

	t.Run("full read populates cache", func(t *testing.T) {
		data, err := ReadAll(ctx, s, "p")
		require.NoError(t, err)
		assert.Equal(t, payload, data)
		assert.Equal(t, 5, lru.Len())
	})

	t.Run("unaligned read is served from cache", func(t *testing.T) {
		_, before := lru.Stats()

		b, err := s.Open(ctx, "p")
		require.NoError(t, err)
		defer b.Close()

		buf := make([]byte, 7)
		n, err := b.ReadAt(ctx, buf, 3)
		require.NoError(t, err)
		assert.Equal(t, "3456789", string(buf[:n]))

		_, after := lru.Stats()
		assert.Equal(t, before, after)
	})

	t.Run("read past end", func(t *testing.T) {
		b, err := s.Open(ctx, "p")
		require.NoError(t, err)
		defer b.Close()

		buf := make([]byte, 10)
		n, err := b.ReadAt(ctx, buf, 15)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "f-xyz", string(buf[:n]))

		rc, err := b.ReadRange(ctx, 10, 6)
		require.NoError(t, err)
		part, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "abcdef", string(part))
	})

	t.Run("put invalidates", func(t *testing.T) {
		next := bytes.Repeat([]byte("z"), 8)
		require.NoError(t, s.Put(ctx, "p", next))

		data, err := ReadAll(ctx, s, "p")
		require.NoError(t, err)
		assert.Equal(t, next, data)
	})
}
