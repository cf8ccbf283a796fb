package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scmemory/internal/fs"
	"github.com/hupe1980/scmemory/internal/resource"
)

const (
	segmentsDir = "segments"
	contentsDir = "contents"
	lockName    = "LOCK"
)

var segmentName = regexp.MustCompile(`^[0-9]{10}$`)

// SegmentFileName returns the file name of segment idx.
func SegmentFileName(idx int) string {
	return fmt.Sprintf("%010d", idx)
}

// Option configures a Repository.
type Option func(*Repository)

// WithFileSystem sets the filesystem implementation.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(r *Repository) {
		r.fs = fsys
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// WithResourceController throttles and parallelizes writes.
func WithResourceController(rc *resource.Controller) Option {
	return func(r *Repository) {
		r.rc = rc
	}
}

// WithBlockSize sets the expected size of every segment file.
func WithBlockSize(n int) Option {
	return func(r *Repository) {
		r.blockSize = n
	}
}

// Repository is the on-disk home of a store.
type Repository struct {
	root      string
	segments  string
	contents  string
	blockSize int

	fs     fs.FileSystem
	logger *slog.Logger
	rc     *resource.Controller
	lock   fs.Unlocker
}

// SaveResult summarizes a SaveAll call.
type SaveResult struct {
	Written int
	Removed int
	Bytes   int64
}

// Open initializes the repository at root: it derives the segment and
// content paths, creates the content directory and takes the repository lock.
func Open(root string, optFns ...Option) (*Repository, error) {
	r := &Repository{
		root:     root,
		segments: filepath.Join(root, segmentsDir),
		contents: filepath.Join(root, contentsDir),
		fs:       fs.Default,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(r)
	}

	if err := r.fs.MkdirAll(r.contents, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorageUnavailable, r.contents, err)
	}

	lock, err := r.fs.Lock(filepath.Join(root, lockName))
	if err != nil {
		if errors.Is(err, fs.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, root)
		}
		return nil, fmt.Errorf("%w: lock %s: %w", ErrStorageUnavailable, root, err)
	}
	r.lock = lock

	return r, nil
}

// Root returns the repository root.
func (r *Repository) Root() string { return r.root }

// ContentsPath returns the directory holding link payloads.
func (r *Repository) ContentsPath() string { return r.contents }

// SegmentsPath returns the directory holding segment files.
func (r *Repository) SegmentsPath() string { return r.segments }

// FileSystem returns the filesystem in use.
func (r *Repository) FileSystem() fs.FileSystem { return r.fs }

// Close releases the repository lock.
func (r *Repository) Close() error {
	if r.lock == nil {
		return nil
	}

	err := r.lock.Unlock()
	r.lock = nil

	return err
}

func (r *Repository) checkRoot() error {
	info, err := r.fs.Stat(r.root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRepository, r.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRepository, r.root)
	}

	return nil
}

// Count returns the number of segment files present.
func (r *Repository) Count() (int, error) {
	entries, err := r.fs.ReadDir(r.segments)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() && segmentName.MatchString(e.Name()) {
			n++
		}
	}

	return n, nil
}

// LoadAll reads every segment block in index order. An absent segment
// directory yields no blocks. Any read failure is fatal to the caller.
func (r *Repository) LoadAll(ctx context.Context) ([][]byte, error) {
	if err := r.checkRoot(); err != nil {
		return nil, err
	}

	n, err := r.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: list segments: %w", ErrInvalidRepository, err)
	}

	blocks := make([][]byte, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := r.readSegment(i)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	r.logger.Debug("segments loaded", "root", r.root, "count", n)

	return blocks, nil
}

func (r *Repository) readSegment(idx int) ([]byte, error) {
	name := filepath.Join(r.segments, SegmentFileName(idx))

	f, err := r.fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing segment %d", ErrInvalidRepository, idx)
		}
		return nil, fmt.Errorf("open segment %d: %w", idx, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment %d: %w", idx, err)
	}

	if r.blockSize > 0 && info.Size() != int64(r.blockSize) {
		return nil, fmt.Errorf("%w: segment %d has %d bytes, want %d", ErrSizeMismatch, idx, info.Size(), r.blockSize)
	}

	block := make([]byte, info.Size())
	if _, err := io.ReadFull(f, block); err != nil {
		return nil, fmt.Errorf("read segment %d: %w", idx, err)
	}

	return block, nil
}

// SaveAll writes blocks[i] to segment file i, then deletes segment files
// with an index >= len(blocks).
func (r *Repository) SaveAll(ctx context.Context, blocks [][]byte) (SaveResult, error) {
	var res SaveResult

	if err := r.checkRoot(); err != nil {
		return res, err
	}

	if err := r.fs.MkdirAll(r.segments, 0o755); err != nil {
		return res, fmt.Errorf("%w: create %s: %w", ErrStorageUnavailable, r.segments, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.rc.MaxWorkers())

	for i, block := range blocks {
		g.Go(func() error {
			if err := r.rc.AcquireIO(gctx, len(block)); err != nil {
				return err
			}

			name := filepath.Join(r.segments, SegmentFileName(i))
			if err := fs.WriteFileAtomic(r.fs, name, block); err != nil {
				return fmt.Errorf("write segment %d: %w", i, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Written = len(blocks)
	for _, b := range blocks {
		res.Bytes += int64(len(b))
	}

	removed, err := r.removeTrailing(len(blocks))
	res.Removed = removed
	if err != nil {
		return res, err
	}

	if removed > 0 {
		r.logger.Info("trailing segments removed", "root", r.root, "count", removed)
	}

	return res, nil
}

func (r *Repository) removeTrailing(from int) (int, error) {
	removed := 0

	for i := from; ; i++ {
		name := filepath.Join(r.segments, SegmentFileName(i))

		if _, err := r.fs.Stat(name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return removed, nil
			}
			return removed, err
		}

		if err := r.fs.Remove(name); err != nil {
			return removed, fmt.Errorf("remove segment %d: %w", i, err)
		}

		removed++
	}
}

// Clear deletes every segment and content file. The directories are recreated empty.
func (r *Repository) Clear() error {
	if err := r.fs.RemoveAll(r.segments); err != nil {
		return fmt.Errorf("%w: clear segments: %w", ErrStorageUnavailable, err)
	}

	if err := r.fs.RemoveAll(r.contents); err != nil {
		return fmt.Errorf("%w: clear contents: %w", ErrStorageUnavailable, err)
	}

	if err := r.fs.MkdirAll(r.contents, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStorageUnavailable, r.contents, err)
	}

	r.logger.Info("repository cleared", "root", r.root)

	return nil
}
