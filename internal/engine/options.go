package engine

import (
	"log/slog"
	"time"

	"github.com/hupe1980/scmemory/blobstore"
	"github.com/hupe1980/scmemory/internal/content"
	"github.com/hupe1980/scmemory/internal/fs"
	"github.com/hupe1980/scmemory/internal/resource"
)

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFileSystem sets the filesystem used for segment files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(e *Engine) {
		e.fs = fsys
	}
}

// WithResourceController sets the resource controller for the engine.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) {
		e.rc = rc
	}
}

// WithMetricsObserver sets the metrics observer for the engine.
func WithMetricsObserver(observer MetricsObserver) Option {
	return func(e *Engine) {
		if observer != nil {
			e.metrics = observer
		}
	}
}

// WithContentStore stores link payloads in store instead of <root>/contents.
func WithContentStore(store blobstore.BlobStore) Option {
	return func(e *Engine) {
		e.blobs = store
	}
}

// WithContentCodec sets the compression codec for new link payloads.
func WithContentCodec(c content.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithContentCacheSize enables an LRU block cache of the given size in
// front of the content store. Zero disables caching.
func WithContentCacheSize(bytes int64) Option {
	return func(e *Engine) {
		e.cacheSize = bytes
	}
}

// WithClear wipes the repository on open.
func WithClear() Option {
	return func(e *Engine) {
		e.clear = true
	}
}

// WithAutoSave saves the engine periodically while it has unsaved changes.
func WithAutoSave(interval time.Duration) Option {
	return func(e *Engine) {
		e.autoSave = interval
	}
}
