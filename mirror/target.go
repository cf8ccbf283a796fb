package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hupe1980/scmemory/blobstore"
)

// ErrNotFound is returned when a key is absent from the target.
var ErrNotFound = errors.New("mirror: key not found")

// Target is the key-value service identifiers are mirrored to.
type Target interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
}

// BlobTarget stores each key as a blob. Any blobstore.BlobStore works,
// including the MinIO and S3 stores.
type BlobTarget struct {
	store  blobstore.BlobStore
	prefix string
}

// NewBlobTarget returns a target writing blobs named prefix + key.
func NewBlobTarget(store blobstore.BlobStore, prefix string) *BlobTarget {
	return &BlobTarget{store: store, prefix: prefix}
}

func (t *BlobTarget) name(key string) string {
	return t.prefix + url.PathEscape(key)
}

// Set implements Target.
func (t *BlobTarget) Set(ctx context.Context, key string, value []byte) error {
	return t.store.Put(ctx, t.name(key), value)
}

// Get implements Target.
func (t *BlobTarget) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, t.store, t.name(key))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}

	return data, nil
}

// Ping implements Target.
func (t *BlobTarget) Ping(ctx context.Context) error {
	return blobstore.Ping(ctx, t.store)
}
