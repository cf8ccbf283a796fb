package scmemory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/scmemory/internal/engine"
	"github.com/hupe1980/scmemory/internal/resource"
	"github.com/hupe1980/scmemory/model"
)

// Memory is an open sc-memory repository. It is safe for concurrent use;
// all element operations go through a MemoryContext.
type Memory struct {
	engine  *engine.Engine
	opts    options
	logger  *Logger
	metrics MetricsCollector

	ctxMu    sync.Mutex
	contexts map[*MemoryContext]struct{}

	idtfMu   sync.Mutex
	keynodes map[IdentifierScope]model.Addr

	closed atomic.Bool
}

// Stats describes the memory state.
type Stats struct {
	Segments        int
	Nodes           int
	Links           int
	Arcs            int
	FreeSlots       int
	ContentLinks    int
	ContentPayloads int
	ContentBytes    int64
	Contexts        int
}

// Open opens the repository at path, creating it if needed, and loads every
// segment. Integrity failures make Open fail with ErrCorrupt.
func Open(path string, optFns ...Option) (*Memory, error) {
	o := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   o.memoryLimit,
		MaxWorkers:         int64(o.saveConcurrency),
		IOLimitBytesPerSec: o.ioLimit,
	})

	engineOpts := []engine.Option{
		engine.WithLogger(o.logger.Logger),
		engine.WithResourceController(rc),
		engine.WithMetricsObserver(engineObserver{collector: o.metricsCollector, logger: o.logger}),
		engine.WithContentCodec(o.compression.codec()),
		engine.WithContentCacheSize(o.contentCacheSize),
		engine.WithAutoSave(o.autoSave),
	}

	if o.contentStore != nil {
		engineOpts = append(engineOpts, engine.WithContentStore(o.contentStore))
	}

	if o.clear {
		engineOpts = append(engineOpts, engine.WithClear())
	}

	e, err := engine.Open(path, engineOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	return &Memory{
		engine:   e,
		opts:     o,
		logger:   o.logger,
		metrics:  o.metricsCollector,
		contexts: make(map[*MemoryContext]struct{}),
		keynodes: make(map[IdentifierScope]model.Addr),
	}, nil
}

// Close saves the memory (unless WithoutSaveOnClose was given), destroys
// every context and releases the repository.
func (m *Memory) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	var errs []error

	if m.opts.saveOnClose {
		if _, err := m.engine.Save(context.Background()); err != nil {
			errs = append(errs, translateError(err))
		}
	}

	m.ctxMu.Lock()
	for c := range m.contexts {
		c.destroyed.Store(true)
	}
	clear(m.contexts)
	m.ctxMu.Unlock()

	if err := m.engine.Close(); err != nil {
		errs = append(errs, translateError(err))
	}

	return errors.Join(errs...)
}

// Save writes a snapshot of every segment and the content index.
func (m *Memory) Save(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	_, err := m.engine.Save(ctx)

	return translateError(err)
}

// Stats returns element and content counters.
func (m *Memory) Stats() Stats {
	es := m.engine.Stats()

	m.ctxMu.Lock()
	n := len(m.contexts)
	m.ctxMu.Unlock()

	return Stats{
		Segments:        es.Segments,
		Nodes:           es.Nodes,
		Links:           es.Links,
		Arcs:            es.Arcs,
		FreeSlots:       es.FreeSlots,
		ContentLinks:    es.Content.Links,
		ContentPayloads: es.Content.Payloads,
		ContentBytes:    es.Content.Bytes,
		Contexts:        n,
	}
}

// NewContext creates a context that acts with the given access levels.
// An empty name is replaced by a random one.
func (m *Memory) NewContext(levels model.AccessLevels, name string) (*MemoryContext, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	if name == "" {
		name = "ctx-" + uuid.NewString()
	}

	c := &MemoryContext{
		mem:    m,
		levels: levels,
		name:   name,
		logger: m.logger.WithContext(name),
	}

	m.ctxMu.Lock()
	m.contexts[c] = struct{}{}
	m.ctxMu.Unlock()

	return c, nil
}

// Contexts returns the names of the live contexts, sorted.
func (m *Memory) Contexts() []string {
	m.ctxMu.Lock()
	defer m.ctxMu.Unlock()

	names := make([]string, 0, len(m.contexts))
	for c := range m.contexts {
		names = append(names, c.name)
	}

	slices.Sort(names)

	return names
}

func (m *Memory) unregister(c *MemoryContext) {
	m.ctxMu.Lock()
	delete(m.contexts, c)
	m.ctxMu.Unlock()
}

// MemoryContext is a session bound to access levels. All element operations
// of the memory are methods of a context.
type MemoryContext struct {
	mem       *Memory
	levels    model.AccessLevels
	name      string
	logger    *Logger
	destroyed atomic.Bool
}

// Name returns the context name.
func (c *MemoryContext) Name() string { return c.name }

// AccessLevels returns the levels the context acts with.
func (c *MemoryContext) AccessLevels() model.AccessLevels { return c.levels }

// IsValid reports whether the context can still be used.
func (c *MemoryContext) IsValid() bool {
	return !c.destroyed.Load() && !c.mem.closed.Load()
}

// Destroy unregisters the context. Later calls on it fail with ErrClosed.
func (c *MemoryContext) Destroy() {
	if c.destroyed.CompareAndSwap(false, true) {
		c.mem.unregister(c)
	}
}

func (c *MemoryContext) check() error {
	if !c.IsValid() {
		return ErrClosed
	}
	return nil
}

func (c *MemoryContext) recordCreate(kind string, addr model.Addr, start time.Time, err error) (model.Addr, error) {
	err = translateError(err)
	c.mem.metrics.RecordCreate(kind, time.Since(start), err)
	c.logger.LogCreate(context.Background(), kind, addr, err)

	return addr, err
}

// CreateNode creates a node. Category bits may be omitted.
func (c *MemoryContext) CreateNode(t model.Type) (model.Addr, error) {
	if err := c.check(); err != nil {
		return model.EmptyAddr, err
	}

	start := time.Now()
	addr, err := c.mem.engine.CreateNode(c.levels, t)

	return c.recordCreate("node", addr, start, err)
}

// CreateLink creates a link without content.
func (c *MemoryContext) CreateLink() (model.Addr, error) {
	if err := c.check(); err != nil {
		return model.EmptyAddr, err
	}

	start := time.Now()
	addr, err := c.mem.engine.CreateLink(c.levels)

	return c.recordCreate("link", addr, start, err)
}

// CreateArc creates an arc of type t from begin to end.
func (c *MemoryContext) CreateArc(t model.Type, begin, end model.Addr) (model.Addr, error) {
	if err := c.check(); err != nil {
		return model.EmptyAddr, err
	}

	start := time.Now()
	addr, err := c.mem.engine.CreateArc(c.levels, t, begin, end)

	return c.recordCreate("arc", addr, start, err)
}

// IsElement reports whether addr names a live element.
func (c *MemoryContext) IsElement(addr model.Addr) bool {
	if c.check() != nil {
		return false
	}

	return c.mem.engine.IsElement(addr)
}

// EraseElement erases addr and every arc that transitively depends on it.
func (c *MemoryContext) EraseElement(addr model.Addr) error {
	if err := c.check(); err != nil {
		return err
	}

	start := time.Now()
	n, err := c.mem.engine.Erase(c.levels, addr)
	err = translateError(err)

	c.mem.metrics.RecordErase(n, time.Since(start), err)
	c.logger.LogErase(context.Background(), addr, n, err)

	return err
}

// ElementType returns the type of addr.
func (c *MemoryContext) ElementType(addr model.Addr) (model.Type, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	t, err := c.mem.engine.Type(c.levels, addr)

	return t, translateError(err)
}

// SetElementSubtype replaces the mutable type bits of addr. subtype must not
// contain category bits, nor polarity or permanence bits for arcs.
func (c *MemoryContext) SetElementSubtype(addr model.Addr, subtype model.Type) error {
	if err := c.check(); err != nil {
		return err
	}

	return translateError(c.mem.engine.SetSubtype(c.levels, addr, subtype))
}

// ElementAccessLevels returns the access levels of addr.
func (c *MemoryContext) ElementAccessLevels(addr model.Addr) (model.AccessLevels, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	l, err := c.mem.engine.AccessLevels(c.levels, addr)

	return l, translateError(err)
}

// SetElementAccessLevels sets the access levels of addr, capped at the
// context's own levels, and returns the previous value.
func (c *MemoryContext) SetElementAccessLevels(addr model.Addr, levels model.AccessLevels) (model.AccessLevels, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	prev, err := c.mem.engine.SetAccessLevels(c.levels, addr, levels)

	return prev, translateError(err)
}

// ArcBegin returns the source of the arc at addr.
func (c *MemoryContext) ArcBegin(addr model.Addr) (model.Addr, error) {
	begin, _, err := c.ArcEnds(addr)
	return begin, err
}

// ArcEnd returns the target of the arc at addr.
func (c *MemoryContext) ArcEnd(addr model.Addr) (model.Addr, error) {
	_, end, err := c.ArcEnds(addr)
	return end, err
}

// ArcEnds returns both endpoints of the arc at addr.
func (c *MemoryContext) ArcEnds(addr model.Addr) (begin, end model.Addr, err error) {
	if err := c.check(); err != nil {
		return model.EmptyAddr, model.EmptyAddr, err
	}

	begin, end, err = c.mem.engine.ArcEnds(c.levels, addr)

	return begin, end, translateError(err)
}

// SetLinkContent replaces the content of the link at addr.
func (c *MemoryContext) SetLinkContent(ctx context.Context, addr model.Addr, data []byte) error {
	if err := c.check(); err != nil {
		return err
	}

	start := time.Now()
	err := translateError(c.mem.engine.SetLinkContent(ctx, c.levels, addr, data))
	c.mem.metrics.RecordContent("set", len(data), time.Since(start), err)

	return err
}

// LinkContent returns the content of the link at addr. A link that never
// received content fails with ErrNoContent; content set to empty yields an
// empty slice.
func (c *MemoryContext) LinkContent(ctx context.Context, addr model.Addr) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := c.mem.engine.LinkContent(ctx, c.levels, addr)
	err = translateError(err)
	c.mem.metrics.RecordContent("get", len(data), time.Since(start), err)

	return data, err
}

// FindLinksByContent returns every live link whose content equals data.
func (c *MemoryContext) FindLinksByContent(data []byte) ([]model.Addr, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	start := time.Now()
	found, err := c.mem.engine.FindLinksByContent(c.levels, data)
	err = translateError(err)
	c.mem.metrics.RecordContent("find", len(data), time.Since(start), err)

	return found, err
}

// Save saves the whole memory.
func (c *MemoryContext) Save(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}

	return c.mem.Save(ctx)
}
