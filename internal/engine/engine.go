package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/scmemory/blobstore"
	"github.com/hupe1980/scmemory/internal/cache"
	"github.com/hupe1980/scmemory/internal/content"
	"github.com/hupe1980/scmemory/internal/event"
	"github.com/hupe1980/scmemory/internal/fs"
	"github.com/hupe1980/scmemory/internal/resource"
	"github.com/hupe1980/scmemory/internal/segment"
	"github.com/hupe1980/scmemory/internal/storage"
	"github.com/hupe1980/scmemory/model"
)

// segmentBytes is the memory charged to the resource controller per segment.
const segmentBytes = int64(segment.BlockSize)

// Engine owns the segments, the adjacency index and the content store of one
// repository. A single RW lock guards segments and adjacency; link payload
// I/O runs outside of it.
type Engine struct {
	mu       sync.RWMutex
	segments []*segment.Segment
	adj      *adjacency
	clock    uint32
	dirty    atomic.Bool

	root    string
	repo    *storage.Repository
	content *content.Store
	bus     event.Bus

	blobs     blobstore.BlobStore
	codec     content.Codec
	cacheSize int64
	clear     bool
	autoSave  time.Duration

	saveMu sync.Mutex

	fs      fs.FileSystem
	rc      *resource.Controller
	logger  *slog.Logger
	metrics MetricsObserver

	closed  atomic.Bool
	closeCh chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Stats describes the engine state.
type Stats struct {
	Segments  int
	Nodes     int
	Links     int
	Arcs      int
	FreeSlots int
	Clock     uint32
	Content   content.Stats
}

// Open opens or creates the repository at root and loads it.
func Open(root string, opts ...Option) (*Engine, error) {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		root:    root,
		adj:     newAdjacency(),
		codec:   content.CodecZSTD,
		fs:      fs.Default,
		logger:  slog.New(slog.DiscardHandler),
		metrics: NoopMetricsObserver{},
		closeCh: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.rc == nil {
		e.rc = resource.NewController(resource.Config{})
	}

	if err := e.init(); err != nil {
		cancel()
		return nil, err
	}

	if e.autoSave > 0 {
		e.wg.Add(1)
		go e.autoSaveLoop()
	}

	return e, nil
}

func (e *Engine) init() error {
	repo, err := storage.Open(e.root,
		storage.WithFileSystem(e.fs),
		storage.WithLogger(e.logger),
		storage.WithResourceController(e.rc),
		storage.WithBlockSize(segment.BlockSize),
	)
	if err != nil {
		return err
	}
	e.repo = repo

	if e.clear {
		if err := repo.Clear(); err != nil {
			_ = repo.Close()
			return err
		}
	}

	blobs := e.blobs
	if blobs == nil {
		blobs = blobstore.NewLocalStore(repo.ContentsPath())
	}

	if e.cacheSize > 0 {
		blobs = blobstore.NewCachingStore(blobs, cache.NewLRUBlockCache(e.cacheSize, e.rc), 0)
	}

	e.content = content.New(blobs,
		content.WithCodec(e.codec),
		content.WithLogger(e.logger),
		content.WithResourceController(e.rc),
	)

	start := time.Now()
	err = e.load(e.ctx)
	e.metrics.OnLoad(time.Since(start), len(e.segments), err)

	if err != nil {
		e.releaseSegments(len(e.segments))
		_ = repo.Close()
		return err
	}

	return nil
}

// load decodes every segment, validates arc endpoints and rebuilds the
// adjacency index. Any inconsistency is fatal.
func (e *Engine) load(ctx context.Context) error {
	blocks, err := e.repo.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSizeMismatch) {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return err
	}

	e.segments = make([]*segment.Segment, 0, len(blocks))

	for i, block := range blocks {
		seg, h, err := segment.Decode(uint32(i), block)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		if err := e.rc.AcquireMemory(segmentBytes); err != nil {
			return fmt.Errorf("%w: load segment %d: %w", ErrBackpressure, i, err)
		}

		e.segments = append(e.segments, seg)
		e.clock = max(e.clock, h.Clock)
	}

	var arcs []model.Addr

	for _, seg := range e.segments {
		seg.ForEachLive(func(addr model.Addr, slot *segment.Slot) bool {
			e.clock = max(e.clock, slot.Gen)
			if slot.Type.IsArc() {
				arcs = append(arcs, addr)
			}
			return true
		})
	}

	for _, arc := range arcs {
		slot := e.lookup(arc)
		if e.lookup(slot.Begin) == nil || e.lookup(slot.End) == nil {
			return fmt.Errorf("%w: arc %s has a dangling endpoint", ErrCorrupt, arc)
		}

		e.adj.add(arc, slot.Type, slot.Begin, slot.End)
	}

	if e.clear {
		e.content.Clear()
	} else if err := e.content.Load(ctx); err != nil {
		return err
	}

	if n := e.content.Retain(e.isLinkLocked); n > 0 {
		e.logger.Warn("stale content entries dropped", "count", n)
		e.dirty.Store(true)
	}

	e.logger.Info("repository loaded", "root", e.root, "segments", len(e.segments), "arcs", len(arcs))

	return nil
}

func (e *Engine) isLinkLocked(a model.Addr) bool {
	slot := e.lookup(a)
	return slot != nil && slot.Type.IsLink()
}

// Close stops background work and releases the repository. It does not save.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	e.cancel()
	close(e.closeCh)
	e.wg.Wait()

	e.mu.Lock()
	e.releaseSegments(len(e.segments))
	e.mu.Unlock()

	return e.repo.Close()
}

func (e *Engine) releaseSegments(n int) {
	e.rc.ReleaseMemory(int64(n) * segmentBytes)
}

func (e *Engine) autoSaveLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.autoSave)
	defer ticker.Stop()

	for {
		select {
		case <-e.closeCh:
			return
		case <-ticker.C:
			if !e.dirty.Load() {
				continue
			}

			if _, err := e.Save(e.ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("auto save failed", "error", err)
			}
		}
	}
}

// Bus returns the mutation event bus.
func (e *Engine) Bus() *event.Bus {
	return &e.bus
}

// Root returns the repository root.
func (e *Engine) Root() string {
	return e.root
}

// Stats returns a snapshot of element counts.
func (e *Engine) Stats() Stats {
	e.mu.RLock()

	st := Stats{Segments: len(e.segments), Clock: e.clock}

	for _, seg := range e.segments {
		seg.ForEachLive(func(_ model.Addr, slot *segment.Slot) bool {
			switch {
			case slot.Type.IsNode():
				st.Nodes++
			case slot.Type.IsLink():
				st.Links++
			case slot.Type.IsArc():
				st.Arcs++
			}
			return true
		})
	}

	if n := len(e.segments); n > 0 {
		st.FreeSlots = e.segments[n-1].Free()
	}

	e.mu.RUnlock()

	st.Content = e.content.Stats()

	return st
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return ErrClosed
	}
	return nil
}

// lookup returns the live slot addressed by a, or nil. Callers hold e.mu.
func (e *Engine) lookup(a model.Addr) *segment.Slot {
	if a.IsEmpty() || int(a.Seg) >= len(e.segments) {
		return nil
	}

	return e.segments[a.Seg].Lookup(a)
}

// nextGen advances the generation clock. Zero is never issued and the clock
// never wraps.
func (e *Engine) nextGen() (uint32, error) {
	if e.clock == math.MaxUint32 {
		return 0, ErrGenerationExhausted
	}

	e.clock++

	return e.clock, nil
}

// alloc takes the first free slot of the last segment, appending a segment
// when it is full. Callers hold e.mu for writing.
func (e *Engine) alloc(t model.Type, levels model.AccessLevels) (model.Addr, *segment.Slot, error) {
	gen, err := e.nextGen()
	if err != nil {
		return model.EmptyAddr, nil, err
	}

	var seg *segment.Segment

	if n := len(e.segments); n > 0 && !e.segments[n-1].Full() {
		seg = e.segments[n-1]
	} else {
		if !e.rc.TryAcquireMemory(segmentBytes) {
			return model.EmptyAddr, nil, fmt.Errorf("%w: segment %d", ErrBackpressure, n)
		}

		seg = segment.New(uint32(n))
		e.segments = append(e.segments, seg)

		e.logger.Debug("segment appended", "segment", n)
	}

	off, err := seg.Alloc(gen)
	if err != nil {
		return model.EmptyAddr, nil, err
	}

	slot := seg.Slot(off)
	slot.Type = t
	slot.Access = levels

	e.dirty.Store(true)

	return seg.Addr(off), slot, nil
}
