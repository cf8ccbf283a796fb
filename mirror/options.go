package mirror

import (
	"log/slog"
	"time"
)

// Defaults.
const (
	DefaultMaxRetries    = 5
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultPingInterval  = time.Second
	DefaultTimeout       = 1500 * time.Millisecond
	DefaultQueueSize     = 1024
)

type config struct {
	maxRetries    int
	retryInterval time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	queueSize     int
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
		pingInterval:  DefaultPingInterval,
		timeout:       DefaultTimeout,
		queueSize:     DefaultQueueSize,
		logger:        slog.New(slog.DiscardHandler),
	}
}

// Option configures a Service.
type Option func(*config)

// WithMaxRetries sets how many times a write is attempted.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryInterval sets the minimum spacing between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithPingInterval sets the keep-alive period. Zero disables keep-alive.
func WithPingInterval(d time.Duration) Option {
	return func(c *config) {
		c.pingInterval = d
	}
}

// WithTimeout bounds every call to the target.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithQueueSize sets how many notifications may wait for the worker.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
