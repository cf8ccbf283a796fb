package engine

import (
	"context"
	"time"

	"github.com/hupe1980/scmemory/internal/content"
)

// SaveResult summarizes a Save call.
type SaveResult struct {
	Segments       int
	Trimmed        int
	Removed        int
	Bytes          int64
	ContentEntries int
	ContentDeleted int
	Duration       time.Duration
}

// Save snapshots every segment and the content index under one brief write
// lock and writes the snapshot without holding it. Trailing empty segments are dropped first, so
// the files on disk mirror the in-memory segment set. Concurrent saves are
// serialized.
func (e *Engine) Save(ctx context.Context) (SaveResult, error) {
	var res SaveResult

	if err := e.checkOpen(); err != nil {
		return res, err
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	start := time.Now()

	e.mu.Lock()
	res.Trimmed = e.trimLocked()

	blocks := make([][]byte, len(e.segments))
	for i, seg := range e.segments {
		blocks[i] = seg.MarshalBinary(e.clock)
	}

	index := e.content.Snapshot(e.isLinkLocked)

	e.dirty.Store(false)
	e.mu.Unlock()

	res.Segments = len(blocks)

	err := e.write(ctx, blocks, index, &res)

	res.Duration = time.Since(start)
	e.metrics.OnSave(res.Duration, res.Segments, err)

	if err != nil {
		e.dirty.Store(true)
		e.content.MarkDirty()
		return res, err
	}

	e.metrics.OnThroughput("segment_write", res.Bytes)
	e.logger.Info("repository saved",
		"root", e.root,
		"segments", res.Segments,
		"removed", res.Removed,
		"content_entries", res.ContentEntries,
		"duration", res.Duration,
	)

	return res, nil
}

func (e *Engine) write(ctx context.Context, blocks [][]byte, index content.Snapshot, res *SaveResult) error {
	sr, err := e.repo.SaveAll(ctx, blocks)
	res.Removed = sr.Removed
	res.Bytes = sr.Bytes

	if err != nil {
		return err
	}

	cr, err := e.content.SaveSnapshot(ctx, index)
	res.ContentEntries = cr.Entries
	res.ContentDeleted = cr.Deleted

	return err
}

// trimLocked drops trailing segments without live elements. The first
// segment is kept so the generation clock survives in its header.
func (e *Engine) trimLocked() int {
	n := len(e.segments)
	for n > 1 && e.segments[n-1].Empty() {
		n--
	}

	trimmed := len(e.segments) - n
	if trimmed == 0 {
		return 0
	}

	clear(e.segments[n:])
	e.segments = e.segments[:n]
	e.releaseSegments(trimmed)

	e.logger.Debug("empty trailing segments trimmed", "count", trimmed)

	return trimmed
}
