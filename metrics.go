package scmemory

import (
	"context"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus (see package promcollector).
type MetricsCollector interface {
	// RecordCreate is called after each element creation. kind is
	// "node", "link" or "arc".
	RecordCreate(kind string, duration time.Duration, err error)

	// RecordErase is called after each erase. count is the number of
	// elements removed by the cascade.
	RecordErase(count int, duration time.Duration, err error)

	// RecordIterate is called when an iterator is exhausted. pattern is the
	// template name such as "f_a_a".
	RecordIterate(pattern string, matches int, duration time.Duration)

	// RecordSave is called after each save, including automatic ones.
	RecordSave(segments int, duration time.Duration, err error)

	// RecordContent is called after each link content operation. op is
	// "set", "get" or "find".
	RecordContent(op string, bytes int, duration time.Duration, err error)
}

// ThroughputRecorder is optionally implemented by a MetricsCollector to
// receive byte counts of segment and content writes.
type ThroughputRecorder interface {
	RecordThroughput(name string, bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(string, time.Duration, error)       {}
func (NoopMetricsCollector) RecordErase(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordIterate(string, int, time.Duration)        {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordContent(string, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CreateCount    atomic.Int64
	CreateErrors   atomic.Int64
	EraseCount     atomic.Int64
	ErasedElements atomic.Int64
	EraseErrors    atomic.Int64
	IterateCount   atomic.Int64
	IterateMatches atomic.Int64
	SaveCount      atomic.Int64
	SaveErrors     atomic.Int64
	SaveTotalNanos atomic.Int64
	ContentOps     atomic.Int64
	ContentBytes   atomic.Int64
	ContentErrors  atomic.Int64
	BytesWritten   atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(_ string, _ time.Duration, err error) {
	b.CreateCount.Add(1)
	if err != nil {
		b.CreateErrors.Add(1)
	}
}

// RecordErase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordErase(count int, _ time.Duration, err error) {
	b.EraseCount.Add(1)
	b.ErasedElements.Add(int64(count))
	if err != nil {
		b.EraseErrors.Add(1)
	}
}

// RecordIterate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIterate(_ string, matches int, _ time.Duration) {
	b.IterateCount.Add(1)
	b.IterateMatches.Add(int64(matches))
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(_ int, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordContent implements MetricsCollector.
func (b *BasicMetricsCollector) RecordContent(_ string, bytes int, _ time.Duration, err error) {
	b.ContentOps.Add(1)
	b.ContentBytes.Add(int64(bytes))
	if err != nil {
		b.ContentErrors.Add(1)
	}
}

// RecordThroughput implements ThroughputRecorder.
func (b *BasicMetricsCollector) RecordThroughput(_ string, bytes int64) {
	b.BytesWritten.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:    b.CreateCount.Load(),
		CreateErrors:   b.CreateErrors.Load(),
		EraseCount:     b.EraseCount.Load(),
		ErasedElements: b.ErasedElements.Load(),
		EraseErrors:    b.EraseErrors.Load(),
		IterateCount:   b.IterateCount.Load(),
		IterateMatches: b.IterateMatches.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		SaveAvgNanos:   b.getAvgSaveNanos(),
		ContentOps:     b.ContentOps.Load(),
		ContentBytes:   b.ContentBytes.Load(),
		ContentErrors:  b.ContentErrors.Load(),
		BytesWritten:   b.BytesWritten.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSaveNanos() int64 {
	count := b.SaveCount.Load()
	if count == 0 {
		return 0
	}
	return b.SaveTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CreateCount    int64
	CreateErrors   int64
	EraseCount     int64
	ErasedElements int64
	EraseErrors    int64
	IterateCount   int64
	IterateMatches int64
	SaveCount      int64
	SaveErrors     int64
	SaveAvgNanos   int64
	ContentOps     int64
	ContentBytes   int64
	ContentErrors  int64
	BytesWritten   int64
}

// engineObserver forwards engine maintenance events to the collector and logger.
type engineObserver struct {
	collector MetricsCollector
	logger    *Logger
}

func (o engineObserver) OnLoad(_ time.Duration, segments int, err error) {
	o.logger.LogLoad(context.Background(), segments, err)
}

func (o engineObserver) OnSave(duration time.Duration, segments int, err error) {
	o.collector.RecordSave(segments, duration, err)
	o.logger.LogSave(context.Background(), segments, err)
}

func (o engineObserver) OnThroughput(name string, bytes int64) {
	if tr, ok := o.collector.(ThroughputRecorder); ok {
		tr.RecordThroughput(name, bytes)
	}
}
