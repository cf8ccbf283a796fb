package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/blobstore"
	"github.com/hupe1980/scmemory/internal/event"
	"github.com/hupe1980/scmemory/internal/fs"
	"github.com/hupe1980/scmemory/internal/segment"
	"github.com/hupe1980/scmemory/internal/storage"
	"github.com/hupe1980/scmemory/model"
)

const full = model.AccessLevelsFull

func openTest(t *testing.T, dir string, opts ...Option) *Engine {
	t.Helper()

	e, err := Open(dir, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	return e
}

func TestEngineElements(t *testing.T) {
	e := openTest(t, t.TempDir())

	// 1. Create
	node, err := e.CreateNode(full, model.Const)
	require.NoError(t, err)
	link, err := e.CreateLink(full)
	require.NoError(t, err)
	arc, err := e.CreateArc(full, model.ArcPosConstPerm, node, link)
	require.NoError(t, err)

	assert.True(t, e.IsElement(node))
	assert.True(t, e.IsElement(link))
	assert.True(t, e.IsElement(arc))

	// 2. Types
	typ, err := e.Type(full, node)
	require.NoError(t, err)
	assert.Equal(t, model.NodeConst, typ)

	typ, err = e.Type(full, link)
	require.NoError(t, err)
	assert.Equal(t, model.Link, typ)

	typ, err = e.Type(full, arc)
	require.NoError(t, err)
	assert.Equal(t, model.ArcPosConstPerm, typ)

	// 3. Endpoints
	begin, end, err := e.ArcEnds(full, arc)
	require.NoError(t, err)
	assert.Equal(t, node, begin)
	assert.Equal(t, link, end)

	_, _, err = e.ArcEnds(full, node)
	assert.ErrorIs(t, err, ErrNotAnArc)

	// 4. Subtype
	require.NoError(t, e.SetSubtype(full, node, model.Var))
	typ, err = e.Type(full, node)
	require.NoError(t, err)
	assert.Equal(t, model.NodeVar, typ)

	// 5. Cascade
	n, err := e.Erase(full, node)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, e.IsElement(node))
	assert.False(t, e.IsElement(arc))
	assert.True(t, e.IsElement(link))

	_, err = e.Erase(full, node)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = e.Type(full, node)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestEngineCreateValidation(t *testing.T) {
	e := openTest(t, t.TempDir())

	_, err := e.CreateNode(full, model.ArcPosConstPerm)
	assert.ErrorIs(t, err, ErrInvalidType)

	n, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	_, err = e.CreateArc(full, model.NodeConst, n, n)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = e.CreateArc(full, model.ArcPosConstPerm, n, model.EmptyAddr)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	stale := n
	_, err = e.Erase(full, n)
	require.NoError(t, err)

	other, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	_, err = e.CreateArc(full, model.ArcPosConstPerm, other, stale)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
}

func TestEngineAddressReuse(t *testing.T) {
	e := openTest(t, t.TempDir())

	a, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	_, err = e.Erase(full, a)
	require.NoError(t, err)

	b, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	assert.Equal(t, a.Seg, b.Seg)
	assert.Equal(t, a.Offset, b.Offset, "slot is reused")
	assert.NotEqual(t, a, b)
	assert.False(t, e.IsElement(a))
	assert.True(t, e.IsElement(b))
}

func TestEngineCascadeThroughArcs(t *testing.T) {
	e := openTest(t, t.TempDir())

	n1, _ := e.CreateNode(full, model.NodeConst)
	n2, _ := e.CreateNode(full, model.NodeConst)
	n3, _ := e.CreateNode(full, model.NodeConst)

	arc1, err := e.CreateArc(full, model.ArcCommonConst, n1, n2)
	require.NoError(t, err)
	arc2, err := e.CreateArc(full, model.ArcPosConstPerm, n3, arc1)
	require.NoError(t, err)
	arc3, err := e.CreateArc(full, model.ArcPosConstPerm, n3, arc2)
	require.NoError(t, err)
	loop, err := e.CreateArc(full, model.ArcPosConstTemp, n2, n2)
	require.NoError(t, err)

	var erased []model.Addr
	cancel := e.Bus().Subscribe(func(ev event.Event) bool { return ev.Kind == event.ElementErased }, func(ev event.Event) {
		erased = append(erased, ev.Addr)
	})
	defer cancel()

	n, err := e.Erase(full, n2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.ElementsMatch(t, []model.Addr{n2, arc1, arc2, arc3, loop}, erased)

	assert.True(t, e.IsElement(n1))
	assert.True(t, e.IsElement(n3))

	st := e.Stats()
	assert.Equal(t, 2, st.Nodes)
	assert.Equal(t, 0, st.Arcs)
}

func TestEngineSubtypeImmutableBits(t *testing.T) {
	e := openTest(t, t.TempDir())

	n, _ := e.CreateNode(full, model.NodeConst)
	m, _ := e.CreateNode(full, model.NodeConst)
	arc, err := e.CreateArc(full, model.ArcPosConstPerm, n, m)
	require.NoError(t, err)

	assert.ErrorIs(t, e.SetSubtype(full, n, model.Link), ErrImmutableBitsViolation)
	assert.ErrorIs(t, e.SetSubtype(full, arc, model.ArcNeg), ErrImmutableBitsViolation)
	assert.ErrorIs(t, e.SetSubtype(full, arc, model.ArcTemp), ErrImmutableBitsViolation)

	for _, st := range []model.Type{model.Var, model.Const | model.NodeClass, model.NodeRole, 0} {
		require.NoError(t, e.SetSubtype(full, n, st))

		typ, err := e.Type(full, n)
		require.NoError(t, err)
		assert.Equal(t, model.Node, typ.Category())
		assert.Equal(t, model.Node|st, typ)
	}

	// Constancy of an arc is mutable and the adjacency index follows it.
	require.NoError(t, e.SetSubtype(full, arc, model.Var))

	typ, err := e.Type(full, arc)
	require.NoError(t, err)
	assert.Equal(t, model.ArcPosVarPerm, typ)

	it, err := e.Iterator3(full, model.Fixed(n), model.Any(model.ArcPosVarPerm), model.Any(model.Node))
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, arc, it.Value(1))
	assert.False(t, it.Next())

	it, err = e.Iterator3(full, model.Fixed(n), model.Any(model.ArcPosConstPerm), model.Any(model.Node))
	require.NoError(t, err)
	assert.False(t, it.Next())
}

func TestEngineAccessLevels(t *testing.T) {
	e := openTest(t, t.TempDir())

	low := model.NewAccessLevels(1, 1)

	secret, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	_, err = e.Type(low, secret)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = e.Erase(low, secret)
	assert.ErrorIs(t, err, ErrAccessDenied)

	prev, err := e.SetAccessLevels(full, secret, model.NewAccessLevels(1, 2))
	require.NoError(t, err)
	assert.Equal(t, full, prev)

	levels, err := e.AccessLevels(low, secret)
	require.NoError(t, err)
	assert.Equal(t, model.NewAccessLevels(1, 2), levels)

	assert.ErrorIs(t, e.SetSubtype(low, secret, model.Var), ErrAccessDenied)

	// A caller cannot grant more than it holds.
	own, err := e.CreateNode(low, model.NodeConst)
	require.NoError(t, err)

	_, err = e.SetAccessLevels(low, own, full)
	require.NoError(t, err)

	levels, err = e.AccessLevels(low, own)
	require.NoError(t, err)
	assert.Equal(t, low, levels)
}

func TestEngineLinkContent(t *testing.T) {
	ctx := context.Background()
	e := openTest(t, t.TempDir())

	l1, _ := e.CreateLink(full)
	l2, _ := e.CreateLink(full)
	l3, _ := e.CreateLink(full)
	n, _ := e.CreateNode(full, model.NodeConst)

	_, err := e.LinkContent(ctx, full, l1)
	assert.ErrorIs(t, err, ErrNoContent)

	require.NoError(t, e.SetLinkContent(ctx, full, l1, []byte("test content string")))
	require.NoError(t, e.SetLinkContent(ctx, full, l2, []byte("test content string")))
	require.NoError(t, e.SetLinkContent(ctx, full, l3, []byte("other")))

	assert.ErrorIs(t, e.SetLinkContent(ctx, full, n, []byte("x")), ErrNotALink)
	_, err = e.LinkContent(ctx, full, n)
	assert.ErrorIs(t, err, ErrNotALink)

	data, err := e.LinkContent(ctx, full, l1)
	require.NoError(t, err)
	assert.Equal(t, "test content string", string(data))

	found, err := e.FindLinksByContent(full, []byte("test content string"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Addr{l1, l2}, found)

	// Replace, not append.
	require.NoError(t, e.SetLinkContent(ctx, full, l2, []byte("other")))
	found, err = e.FindLinksByContent(full, []byte("test content string"))
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{l1}, found)

	_, err = e.Erase(full, l3)
	require.NoError(t, err)

	found, err = e.FindLinksByContent(full, []byte("other"))
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{l2}, found)

	found, err = e.FindLinksByContent(full, []byte("missing"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEngineSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)

	n1, _ := e.CreateNode(full, model.NodeConstClass)
	n2, _ := e.CreateNode(full, model.NodeVar)
	link, _ := e.CreateLink(full)
	arc, err := e.CreateArc(full, model.ArcPosConstPerm, n1, n2)
	require.NoError(t, err)
	attr, err := e.CreateArc(full, model.ArcCommonConst, link, arc)
	require.NoError(t, err)
	gone, _ := e.CreateNode(full, model.NodeConst)
	_, err = e.Erase(full, gone)
	require.NoError(t, err)

	require.NoError(t, e.SetLinkContent(ctx, full, link, []byte("payload")))

	res, err := e.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Segments)
	assert.Equal(t, 1, res.ContentEntries)

	before := e.Stats()
	require.NoError(t, e.Close())

	e2 := openTest(t, dir)

	after := e2.Stats()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Links, after.Links)
	assert.Equal(t, before.Arcs, after.Arcs)
	assert.GreaterOrEqual(t, after.Clock, before.Clock)

	for addr, want := range map[model.Addr]model.Type{
		n1: model.NodeConstClass, n2: model.NodeVar, link: model.Link,
		arc: model.ArcPosConstPerm, attr: model.ArcCommonConst,
	} {
		typ, err := e2.Type(full, addr)
		require.NoError(t, err)
		assert.Equal(t, want, typ)
	}

	assert.False(t, e2.IsElement(gone))

	begin, end, err := e2.ArcEnds(full, attr)
	require.NoError(t, err)
	assert.Equal(t, link, begin)
	assert.Equal(t, arc, end)

	data, err := e2.LinkContent(ctx, full, link)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	found, err := e2.FindLinksByContent(full, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{link}, found)

	// Adjacency is rebuilt.
	it, err := e2.Iterator3(full, model.Fixed(n1), model.Any(model.ArcPosConstPerm), model.Any(model.Node))
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, model.Triple{n1, arc, n2}, it.Triple())

	// New generations never repeat old ones.
	fresh, err := e2.CreateNode(full, model.NodeConst)
	require.NoError(t, err)
	assert.NotEqual(t, gone, fresh)
}

func TestEngineTrailingSegmentsRemoved(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e := openTest(t, dir)

	nodes := make([]model.Addr, 0, segment.Capacity+10)
	for range segment.Capacity + 10 {
		n, err := e.CreateNode(full, model.NodeConst)
		require.NoError(t, err)
		nodes = append(nodes, n)
	}

	_, err := e.Save(ctx)
	require.NoError(t, err)

	segDir := filepath.Join(dir, "segments")
	assert.FileExists(t, filepath.Join(segDir, storage.SegmentFileName(1)))

	for _, n := range nodes[segment.Capacity:] {
		_, err := e.Erase(full, n)
		require.NoError(t, err)
	}

	res, err := e.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Trimmed)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 1, res.Segments)

	entries, err := os.ReadDir(segDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.SegmentFileName(0), entries[0].Name())
}

func TestEngineLoadRejectsCorruption(t *testing.T) {
	ctx := context.Background()

	t.Run("size mismatch", func(t *testing.T) {
		dir := t.TempDir()
		e, err := Open(dir)
		require.NoError(t, err)
		_, err = e.CreateNode(full, model.NodeConst)
		require.NoError(t, err)
		_, err = e.Save(ctx)
		require.NoError(t, err)
		require.NoError(t, e.Close())

		name := filepath.Join(dir, "segments", storage.SegmentFileName(0))
		require.NoError(t, os.Truncate(name, segment.BlockSize-1))

		_, err = Open(dir)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.ErrorIs(t, err, storage.ErrSizeMismatch)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		dir := t.TempDir()
		e, err := Open(dir)
		require.NoError(t, err)
		_, err = e.CreateNode(full, model.NodeConst)
		require.NoError(t, err)
		_, err = e.Save(ctx)
		require.NoError(t, err)
		require.NoError(t, e.Close())

		name := filepath.Join(dir, "segments", storage.SegmentFileName(0))
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		data[segment.HeaderSize+1] ^= 0xff
		require.NoError(t, os.WriteFile(name, data, 0o644))

		_, err = Open(dir)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.ErrorIs(t, err, segment.ErrChecksumMismatch)
	})

	t.Run("root is a file", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

		_, err := Open(root)
		assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	})
}

func TestEngineClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)
	_, err = e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)
	_, err = e.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	e2 := openTest(t, dir, WithClear())
	assert.Equal(t, 0, e2.Stats().Nodes)
}

func TestEngineClosed(t *testing.T) {
	e, err := Open(t.TempDir())
	require.NoError(t, err)

	n, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Close(), ErrClosed)

	_, err = e.CreateNode(full, model.NodeConst)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, e.IsElement(n))

	_, err = e.Save(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineRepositoryLocked(t *testing.T) {
	dir := t.TempDir()
	_ = openTest(t, dir)

	_, err := Open(dir)
	assert.ErrorIs(t, err, storage.ErrLocked)
}

func TestEngineEvents(t *testing.T) {
	ctx := context.Background()
	e := openTest(t, t.TempDir())

	var kinds []event.Kind
	cancel := e.Bus().Subscribe(nil, func(ev event.Event) { kinds = append(kinds, ev.Kind) })
	defer cancel()

	n, _ := e.CreateNode(full, model.NodeConst)
	l, _ := e.CreateLink(full)
	_, err := e.CreateArc(full, model.ArcPosConstPerm, n, l)
	require.NoError(t, err)
	require.NoError(t, e.SetLinkContent(ctx, full, l, []byte("x")))

	assert.Equal(t, []event.Kind{
		event.ElementCreated,
		event.ElementCreated,
		event.ElementCreated,
		event.ArcAdded,
		event.ContentChanged,
	}, kinds)
}

func TestEngineLinkContentUnsetAndEmpty(t *testing.T) {
	ctx := context.Background()
	e := openTest(t, t.TempDir())

	unset, _ := e.CreateLink(full)
	empty, _ := e.CreateLink(full)

	require.NoError(t, e.SetLinkContent(ctx, full, empty, []byte{}))

	data, err := e.LinkContent(ctx, full, unset)
	assert.ErrorIs(t, err, ErrNoContent)
	assert.Nil(t, data)

	data, err = e.LinkContent(ctx, full, empty)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	found, err := e.FindLinksByContent(full, []byte{})
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{empty}, found)
}

// segmentWriteHook runs onWrite once, when the first segment file is created.
type segmentWriteHook struct {
	fs.FileSystem
	once    sync.Once
	onWrite func()
}

func (h *segmentWriteHook) OpenFile(name string, flag int, perm os.FileMode) (fs.File, error) {
	if h.onWrite != nil && flag&os.O_CREATE != 0 &&
		strings.HasPrefix(filepath.Base(name), storage.SegmentFileName(0)) {
		h.once.Do(h.onWrite)
	}

	return h.FileSystem.OpenFile(name, flag, perm)
}

func TestEngineSaveIsPointInTime(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	hook := &segmentWriteHook{FileSystem: fs.Default}

	e, err := Open(dir, WithFileSystem(hook))
	require.NoError(t, err)

	link, err := e.CreateLink(full)
	require.NoError(t, err)
	require.NoError(t, e.SetLinkContent(ctx, full, link, []byte("kept")))

	// Erased after the snapshot, while segment files are being written.
	hook.onWrite = func() {
		_, err := e.Erase(full, link)
		assert.NoError(t, err)
	}

	res, err := e.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ContentEntries)
	assert.Zero(t, res.ContentDeleted)
	assert.False(t, e.IsElement(link))

	require.NoError(t, e.Close())

	e2 := openTest(t, dir)
	require.True(t, e2.IsElement(link))

	data, err := e2.LinkContent(ctx, full, link)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))

	found, err := e2.FindLinksByContent(full, []byte("kept"))
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{link}, found)
}

// gatedStore blocks payload uploads after they reach the backing store.
type gatedStore struct {
	*blobstore.MemoryStore
	started chan struct{}
	release chan struct{}
}

func (g *gatedStore) Put(ctx context.Context, name string, data []byte) error {
	if err := g.MemoryStore.Put(ctx, name, data); err != nil {
		return err
	}

	if strings.HasPrefix(name, "data/") {
		g.started <- struct{}{}
		<-g.release
	}

	return nil
}

func TestEngineContentUploadDoesNotBlock(t *testing.T) {
	ctx := context.Background()

	gated := &gatedStore{
		MemoryStore: blobstore.NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}

	e := openTest(t, t.TempDir(), WithContentStore(gated))

	slow, _ := e.CreateLink(full)
	done := make(chan error, 1)

	go func() { done <- e.SetLinkContent(ctx, full, slow, []byte("slow upload")) }()

	<-gated.started

	// Mutations, erasure and saves proceed while the upload is in flight.
	n, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)
	other, err := e.CreateLink(full)
	require.NoError(t, err)
	_, err = e.CreateArc(full, model.ArcPosConstPerm, n, other)
	require.NoError(t, err)

	erased, err := e.Erase(full, other)
	require.NoError(t, err)
	assert.Equal(t, 2, erased)

	_, err = e.Save(ctx)
	require.NoError(t, err)

	close(gated.release)
	require.NoError(t, <-done)

	data, err := e.LinkContent(ctx, full, slow)
	require.NoError(t, err)
	assert.Equal(t, "slow upload", string(data))
}

func TestEngineGenerationExhausted(t *testing.T) {
	e := openTest(t, t.TempDir())

	e.mu.Lock()
	e.clock = math.MaxUint32 - 1
	e.mu.Unlock()

	last, err := e.CreateNode(full, model.NodeConst)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), last.Gen)

	_, err = e.CreateNode(full, model.NodeConst)
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	_, err = e.CreateLink(full)
	assert.ErrorIs(t, err, ErrGenerationExhausted)

	assert.True(t, e.IsElement(last))
	assert.Equal(t, uint32(math.MaxUint32), e.Stats().Clock)
}
