package scmemory

import (
	"log/slog"
	"time"

	"github.com/hupe1980/scmemory/blobstore"
	"github.com/hupe1980/scmemory/internal/content"
)

// Compression selects how link content is compressed at rest.
type Compression uint8

const (
	// CompressionZSTD favours ratio. It is the default.
	CompressionZSTD Compression = iota
	// CompressionLZ4 favours speed.
	CompressionLZ4
	// CompressionNone stores content as is.
	CompressionNone
)

func (c Compression) codec() content.Codec {
	switch c {
	case CompressionLZ4:
		return content.CodecLZ4
	case CompressionNone:
		return content.CodecNone
	default:
		return content.CodecZSTD
	}
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	contentStore     blobstore.BlobStore
	compression      Compression
	contentCacheSize int64
	ioLimit          int64
	memoryLimit      int64
	saveConcurrency  int
	autoSave         time.Duration
	clear            bool
	saveOnClose      bool
}

// Option configures Open.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := scmemory.NewJSONLogger(slog.LevelInfo)
//	m, _ := scmemory.Open("./repo", scmemory.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &scmemory.BasicMetricsCollector{}
//	m, _ := scmemory.Open("./repo", scmemory.WithMetricsCollector(metrics))
//	// ... use m ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithContentStore keeps link content in store instead of <root>/contents.
// Segments always live on the local filesystem.
//
// Example with MinIO:
//
//	store := minio.NewStore(client, "sc-memory", "contents/")
//	m, _ := scmemory.Open("./repo", scmemory.WithContentStore(store))
func WithContentStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.contentStore = store
	}
}

// WithContentCompression selects the compression of new link content.
func WithContentCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithContentCacheSize puts an LRU block cache of the given size in front of
// the content store. Useful with remote content stores.
func WithContentCacheSize(bytes int64) Option {
	return func(o *options) {
		o.contentCacheSize = bytes
	}
}

// WithIOLimit throttles segment and content writes to bytesPerSec.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMemoryLimit caps the memory held by segments and the content cache.
// Creating an element that needs a new segment beyond the limit fails with
// ErrBackpressure. If set to 0, memory is unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithSaveConcurrency sets how many segment files are written in parallel.
func WithSaveConcurrency(n int) Option {
	return func(o *options) {
		o.saveConcurrency = n
	}
}

// WithAutoSave saves the memory every interval while it has unsaved changes.
func WithAutoSave(interval time.Duration) Option {
	return func(o *options) {
		o.autoSave = interval
	}
}

// WithClear wipes the repository on open.
func WithClear() Option {
	return func(o *options) {
		o.clear = true
	}
}

// WithoutSaveOnClose makes Close discard unsaved changes.
func WithoutSaveOnClose() Option {
	return func(o *options) {
		o.saveOnClose = false
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      CompressionZSTD,
		saveConcurrency:  4,
		saveOnClose:      true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
