// Package promcollector exports scmemory metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := promcollector.New(reg)
//	mem, _ := scmemory.Open("./kb", scmemory.WithMetricsCollector(mc))
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/scmemory"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
}

// WithNamespace sets the metric name prefix. The default is "scmemory".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		o.buckets = b
	}
}

// Collector implements scmemory.MetricsCollector and scmemory.ThroughputRecorder.
type Collector struct {
	opLatency    *prometheus.HistogramVec
	creates      *prometheus.CounterVec
	erases       *prometheus.CounterVec
	erased       prometheus.Counter
	iterations   *prometheus.CounterVec
	matches      *prometheus.CounterVec
	saves        *prometheus.CounterVec
	segments     prometheus.Gauge
	contentOps   *prometheus.CounterVec
	contentBytes *prometheus.CounterVec
	written      *prometheus.CounterVec
}

var (
	_ scmemory.MetricsCollector   = (*Collector)(nil)
	_ scmemory.ThroughputRecorder = (*Collector)(nil)
)

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	o := options{namespace: "scmemory", buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of memory operations",
			Buckets:   o.buckets,
		}, []string{"op", "status"}),
		creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "elements_created_total",
			Help:      "Element creations by kind",
		}, []string{"kind", "status"}),
		erases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "erase_operations_total",
			Help:      "Erase calls",
		}, []string{"status"}),
		erased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "elements_erased_total",
			Help:      "Elements removed, including cascaded arcs",
		}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "iterations_total",
			Help:      "Exhausted iterators by template",
		}, []string{"pattern"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "iteration_matches_total",
			Help:      "Iterator matches by template",
		}, []string{"pattern"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "saves_total",
			Help:      "Saves, including automatic ones",
		}, []string{"status"}),
		segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "segments",
			Help:      "Segments written by the last save",
		}),
		contentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "content_operations_total",
			Help:      "Link content operations",
		}, []string{"op", "status"}),
		contentBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "content_bytes_total",
			Help:      "Link content bytes by operation",
		}, []string{"op"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes written to segments and content",
		}, []string{"name"}),
	}

	for _, col := range []prometheus.Collector{
		c.opLatency, c.creates, c.erases, c.erased, c.iterations, c.matches,
		c.saves, c.segments, c.contentOps, c.contentBytes, c.written,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordCreate implements scmemory.MetricsCollector.
func (c *Collector) RecordCreate(kind string, d time.Duration, err error) {
	st := status(err)
	c.creates.WithLabelValues(kind, st).Inc()
	c.opLatency.WithLabelValues("create_"+kind, st).Observe(d.Seconds())
}

// RecordErase implements scmemory.MetricsCollector.
func (c *Collector) RecordErase(count int, d time.Duration, err error) {
	st := status(err)
	c.erases.WithLabelValues(st).Inc()
	c.erased.Add(float64(count))
	c.opLatency.WithLabelValues("erase", st).Observe(d.Seconds())
}

// RecordIterate implements scmemory.MetricsCollector.
func (c *Collector) RecordIterate(pattern string, matches int, d time.Duration) {
	c.iterations.WithLabelValues(pattern).Inc()
	c.matches.WithLabelValues(pattern).Add(float64(matches))
	c.opLatency.WithLabelValues("iterate", statusSuccess).Observe(d.Seconds())
}

// RecordSave implements scmemory.MetricsCollector.
func (c *Collector) RecordSave(segments int, d time.Duration, err error) {
	st := status(err)
	c.saves.WithLabelValues(st).Inc()
	c.opLatency.WithLabelValues("save", st).Observe(d.Seconds())
	if err == nil {
		c.segments.Set(float64(segments))
	}
}

// RecordContent implements scmemory.MetricsCollector.
func (c *Collector) RecordContent(op string, bytes int, d time.Duration, err error) {
	st := status(err)
	c.contentOps.WithLabelValues(op, st).Inc()
	c.contentBytes.WithLabelValues(op).Add(float64(bytes))
	c.opLatency.WithLabelValues("content_"+op, st).Observe(d.Seconds())
}

// RecordThroughput implements scmemory.ThroughputRecorder.
func (c *Collector) RecordThroughput(name string, bytes int64) {
	c.written.WithLabelValues(name).Add(float64(bytes))
}
