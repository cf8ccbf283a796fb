package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/tidwall/btree"

	"github.com/hupe1980/scmemory/blobstore"
	"github.com/hupe1980/scmemory/internal/hash"
	"github.com/hupe1980/scmemory/internal/resource"
	"github.com/hupe1980/scmemory/model"
)

const dataPrefix = "data/"

type entry struct {
	gen    uint32
	size   uint32
	digest hash.Digest
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the compression codec for new payloads.
func WithCodec(c Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithResourceController throttles payload writes.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Store) { s.rc = rc }
}

// Store maps links to payloads. Writers are serialized; readers share the lock.
type Store struct {
	mu      sync.RWMutex
	blobs   blobstore.BlobStore
	codec   Codec
	forward map[uint64]entry
	reverse btree.Map[string, *roaring64.Bitmap]
	pending map[hash.Digest]int
	dirty   bool

	logger *slog.Logger
	rc     *resource.Controller
}

// Stats describes the store.
type Stats struct {
	Links    int
	Payloads int
	Bytes    int64
}

// New creates an empty store on top of blobs.
func New(blobs blobstore.BlobStore, optFns ...Option) *Store {
	s := &Store{
		blobs:   blobs,
		codec:   CodecZSTD,
		forward: make(map[uint64]entry),
		pending: make(map[hash.Digest]int),
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(s)
	}

	return s
}

func blobName(d hash.Digest) string {
	hex := d.String()
	return dataPrefix + hex[:2] + "/" + hex
}

func digestKey(d hash.Digest) string {
	return string(d[:])
}

// Set replaces the payload of the link at addr. The blob is written without
// holding the store lock. An entry of a newer occupant of the same slot is
// never replaced; Set then fails with ErrStale.
func (s *Store) Set(ctx context.Context, addr model.Addr, data []byte) error {
	d := hash.Sum(data)
	key := addr.Key()

	s.mu.Lock()

	if old, ok := s.forward[key]; ok {
		if old.gen > addr.Gen {
			s.mu.Unlock()
			return ErrStale
		}

		if old.gen == addr.Gen && old.digest == d {
			s.mu.Unlock()
			return nil
		}
	}

	_, shared := s.reverse.Get(digestKey(d))
	s.pending[d]++

	s.mu.Unlock()

	err := s.put(ctx, d, data, shared)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[d]--; s.pending[d] == 0 {
		delete(s.pending, d)
	}

	if err != nil {
		return err
	}

	if old, ok := s.forward[key]; ok && old.gen > addr.Gen {
		return ErrStale
	}

	s.removeLocked(key)

	s.forward[key] = entry{gen: addr.Gen, size: uint32(len(data)), digest: d}
	s.addReverse(d, key)
	s.dirty = true

	return nil
}

// put uploads the frame of data unless another link already references it.
func (s *Store) put(ctx context.Context, d hash.Digest, data []byte, shared bool) error {
	if shared {
		return nil
	}

	frame, err := encodeFrame(data, s.codec)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrContentIO, err)
	}

	if err := s.rc.AcquireIO(ctx, len(frame)); err != nil {
		return err
	}

	if err := s.blobs.Put(ctx, blobName(d), frame); err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrContentIO, d, err)
	}

	return nil
}

func (s *Store) addReverse(d hash.Digest, key uint64) {
	bm, ok := s.reverse.Get(digestKey(d))
	if !ok {
		bm = roaring64.New()
		s.reverse.Set(digestKey(d), bm)
	}

	bm.Add(key)
}

// Get returns the payload of the link at addr. A link without payload fails
// with ErrNoContent; an empty payload yields a non-nil empty slice.
func (s *Store) Get(ctx context.Context, addr model.Addr) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.forward[addr.Key()]
	s.mu.RUnlock()

	if !ok || e.gen != addr.Gen {
		return nil, ErrNoContent
	}

	if e.size == 0 {
		return []byte{}, nil
	}

	frame, err := blobstore.ReadAll(ctx, s.blobs, blobName(e.digest))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrContentIO, e.digest, err)
	}

	data, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}

	if hash.Sum(data) != e.digest {
		return nil, fmt.Errorf("%w: payload %s does not match its digest", ErrCorrupt, e.digest)
	}

	return data, nil
}

// Has reports whether the link at addr has a payload.
func (s *Store) Has(addr model.Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.forward[addr.Key()]

	return ok && e.gen == addr.Gen
}

// Remove drops the payload mapping of addr. The blob is deleted on the next
// Save if no other link references it.
func (s *Store) Remove(addr model.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.forward[addr.Key()]; ok && e.gen == addr.Gen {
		s.removeLocked(addr.Key())
		s.dirty = true
	}
}

func (s *Store) removeLocked(key uint64) {
	e, ok := s.forward[key]
	if !ok {
		return
	}

	delete(s.forward, key)

	if bm, ok := s.reverse.Get(digestKey(e.digest)); ok {
		bm.Remove(key)
		if bm.IsEmpty() {
			s.reverse.Delete(digestKey(e.digest))
		}
	}
}

// Find returns every link whose payload equals data, ordered by address.
func (s *Store) Find(data []byte) []model.Addr {
	d := hash.Sum(data)

	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.reverse.Get(digestKey(d))
	if !ok {
		return nil
	}

	out := make([]model.Addr, 0, bm.GetCardinality())

	it := bm.Iterator()
	for it.HasNext() {
		key := it.Next()

		e := s.forward[key]
		if e.size != uint32(len(data)) {
			continue
		}

		out = append(out, model.AddrFromKey(key, e.gen))
	}

	return out
}

// Retain drops every mapping whose address keep rejects and returns how many were dropped.
func (s *Store) Retain(keep func(model.Addr) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var drop []uint64

	for key, e := range s.forward {
		if !keep(model.AddrFromKey(key, e.gen)) {
			drop = append(drop, key)
		}
	}

	for _, key := range drop {
		s.removeLocked(key)
	}

	if len(drop) > 0 {
		s.dirty = true
	}

	return len(drop)
}

// Stats returns counters for the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Links: len(s.forward), Payloads: s.reverse.Len()}
	for _, e := range s.forward {
		st.Bytes += int64(e.size)
	}

	return st
}

// Load reads the index. A missing index leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	buf, err := blobstore.ReadAll(ctx, s.blobs, indexName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: read index: %w", ErrContentIO, err)
	}

	entries, err := decodeIndex(buf)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.forward = make(map[uint64]entry, len(entries))
	s.reverse = btree.Map[string, *roaring64.Bitmap]{}

	for _, e := range entries {
		s.forward[e.key] = entry{gen: e.gen, size: e.size, digest: e.digest}
		s.addReverse(e.digest, e.key)
	}

	s.dirty = false

	s.logger.Debug("content index loaded", "links", len(entries), "payloads", s.reverse.Len())

	return nil
}

// Snapshot is a point-in-time copy of the index.
type Snapshot struct {
	entries []indexEntry
	digests map[hash.Digest]struct{}
	dirty   bool
}

// Len returns the number of links in the snapshot.
func (sn Snapshot) Len() int { return len(sn.entries) }

// Snapshot copies the index and clears the dirty flag. Entries whose address
// keep rejects are left out. Callers that persist elements alongside the index
// take the snapshot while their own state is frozen.
func (s *Store) Snapshot(keep func(model.Addr) bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn := Snapshot{
		entries: make([]indexEntry, 0, len(s.forward)),
		digests: make(map[hash.Digest]struct{}, s.reverse.Len()),
		dirty:   s.dirty,
	}

	s.reverse.Scan(func(_ string, bm *roaring64.Bitmap) bool {
		it := bm.Iterator()
		for it.HasNext() {
			key := it.Next()
			e := s.forward[key]

			if keep != nil && !keep(model.AddrFromKey(key, e.gen)) {
				sn.dirty = true
				continue
			}

			sn.entries = append(sn.entries, indexEntry{key: key, gen: e.gen, size: e.size, digest: e.digest})
			sn.digests[e.digest] = struct{}{}
		}
		return true
	})

	s.dirty = false

	return sn
}

// MarkDirty forces the next save to write the index.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// SaveResult summarizes a Save call.
type SaveResult struct {
	Entries int
	Deleted int
}

// Save takes a snapshot of the whole index and writes it.
func (s *Store) Save(ctx context.Context) (SaveResult, error) {
	return s.SaveSnapshot(ctx, s.Snapshot(nil))
}

// SaveSnapshot writes sn as the index and deletes payload blobs that neither
// sn nor the live index references. On failure the store is marked dirty.
func (s *Store) SaveSnapshot(ctx context.Context, sn Snapshot) (SaveResult, error) {
	res, err := s.saveSnapshot(ctx, sn)
	if err != nil {
		s.MarkDirty()
	}

	return res, err
}

func (s *Store) saveSnapshot(ctx context.Context, sn Snapshot) (SaveResult, error) {
	res := SaveResult{Entries: len(sn.entries)}

	if sn.dirty {
		if err := s.blobs.Put(ctx, indexName, encodeIndex(sn.entries)); err != nil {
			return res, fmt.Errorf("%w: write index: %w", ErrContentIO, err)
		}
	}

	names, err := s.blobs.List(ctx, dataPrefix)
	if err != nil {
		return res, fmt.Errorf("%w: list payloads: %w", ErrContentIO, err)
	}

	for _, name := range names {
		d, err := hash.ParseDigest(name[strings.LastIndexByte(name, '/')+1:])
		if err != nil {
			continue
		}

		if _, ok := sn.digests[d]; ok {
			continue
		}

		deleted, err := s.deleteOrphan(ctx, d, name)
		if err != nil {
			return res, err
		}

		if deleted {
			res.Deleted++
		}
	}

	if res.Deleted > 0 {
		s.logger.Info("orphan payloads deleted", "count", res.Deleted)
	}

	return res, nil
}

// deleteOrphan deletes the blob of d unless the live index or an in-flight
// Set references it. The lock is held across the delete so no Set can adopt
// the digest meanwhile.
func (s *Store) deleteOrphan(ctx context.Context, d hash.Digest, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reverse.Get(digestKey(d)); ok {
		return false, nil
	}

	if s.pending[d] > 0 {
		return false, nil
	}

	if err := s.blobs.Delete(ctx, name); err != nil {
		return false, fmt.Errorf("%w: delete %s: %w", ErrContentIO, name, err)
	}

	return true, nil
}

// Clear drops every mapping. Blobs are removed on the next Save.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forward = make(map[uint64]entry)
	s.reverse = btree.Map[string, *roaring64.Bitmap]{}
	s.dirty = true
}
