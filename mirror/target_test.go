package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/blobstore"
)

func TestBlobTarget(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	target := NewBlobTarget(store, "")

	require.NoError(t, target.Ping(ctx))

	require.NoError(t, target.Set(ctx, "idtf:sys:a/b", []byte("v1")))
	require.NoError(t, target.Set(ctx, "idtf:sys:a/b", []byte("v2")))

	got, err := target.Get(ctx, "idtf:sys:a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	_, err = target.Get(ctx, "idtf:sys:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
