package engine

import "time"

// MetricsObserver observes maintenance operations of the engine.
type MetricsObserver interface {
	// OnLoad is called once after the repository has been loaded.
	OnLoad(duration time.Duration, segments int, err error)

	// OnSave is called after each save, including automatic ones.
	OnSave(duration time.Duration, segments int, err error)

	// OnThroughput reports bytes written.
	OnThroughput(name string, bytes int64)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnLoad(time.Duration, int, error) {}
func (NoopMetricsObserver) OnSave(time.Duration, int, error) {}
func (NoopMetricsObserver) OnThroughput(string, int64)       {}
