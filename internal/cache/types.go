package cache

import "context"

// Key identifies one block of one blob.
type Key struct {
	Name  string
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes every block of the named blob.
	Invalidate(name string)
	Stats() (hits, misses int64)
}
