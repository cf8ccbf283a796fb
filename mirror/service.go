package mirror

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/scmemory"
	"github.com/hupe1980/scmemory/model"
)

// ErrClosed is returned by a closed Service.
var ErrClosed = errors.New("mirror: closed")

// ErrInvalidValue is returned when a mirrored value is not an encoded address.
var ErrInvalidValue = errors.New("mirror: invalid value")

// Notification is one identifier assignment to mirror.
type Notification struct {
	Scope scmemory.IdentifierScope
	Name  string
	Addr  model.Addr
}

// Key returns the target key, idtf:<scope>:<name>.
func (n Notification) Key() string {
	return Key(n.Scope, n.Name)
}

// Key returns the target key of name in scope.
func Key(scope scmemory.IdentifierScope, name string) string {
	return "idtf:" + string(scope) + ":" + name
}

const addrSize = 12

// EncodeAddr returns the value stored for addr.
func EncodeAddr(addr model.Addr) []byte {
	b := make([]byte, 0, addrSize)
	b = binary.BigEndian.AppendUint32(b, addr.Seg)
	b = binary.BigEndian.AppendUint32(b, addr.Offset)
	b = binary.BigEndian.AppendUint32(b, addr.Gen)

	return b
}

// DecodeAddr is the inverse of EncodeAddr.
func DecodeAddr(b []byte) (model.Addr, error) {
	if len(b) != addrSize {
		return model.EmptyAddr, fmt.Errorf("%w: %d bytes", ErrInvalidValue, len(b))
	}

	return model.Addr{
		Seg:    binary.BigEndian.Uint32(b[0:4]),
		Offset: binary.BigEndian.Uint32(b[4:8]),
		Gen:    binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// Stats counts mirror activity.
type Stats struct {
	Written  int64
	Failed   int64
	Dropped  int64
	Attempts int64
	Pings    int64
}

// Service mirrors identifier notifications to a Target.
type Service struct {
	target  Target
	cfg     config
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.RWMutex
	queue   chan Notification
	closed  bool
	cancels []func()

	healthy atomic.Bool

	written  atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
	attempts atomic.Int64
	pings    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	worker sync.WaitGroup
	pinger sync.WaitGroup
}

// New starts a service writing to target.
func New(target Target, opts ...Option) *Service {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		target:  target,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.retryInterval), 1),
		logger:  cfg.logger,
		queue:   make(chan Notification, cfg.queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.healthy.Store(true)

	s.worker.Add(1)
	go s.run()

	if cfg.pingInterval > 0 {
		s.pinger.Add(1)
		go s.keepAlive()
	}

	return s
}

// Watch mirrors every identifier set on m until the returned function is
// called or the service is closed.
func (s *Service) Watch(m *scmemory.Memory) (cancel func()) {
	cancel = m.Subscribe(scmemory.EventIdentifierSet, model.EmptyAddr, func(ev scmemory.Event) {
		s.Notify(Notification{Scope: ev.Scope, Name: ev.Name, Addr: ev.Element})
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		cancel()
		return func() {}
	}

	s.cancels = append(s.cancels, cancel)

	return cancel
}

// Notify queues n. It never blocks and reports false when n was dropped.
func (s *Service) Notify(n Notification) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.queue <- n:
		return true
	default:
		s.dropped.Add(1)
		s.logger.Warn("mirror queue full, notification dropped", "key", n.Key())
		return false
	}
}

// Lookup returns the address mirrored for name in scope.
func (s *Service) Lookup(ctx context.Context, scope scmemory.IdentifierScope, name string) (model.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	data, err := s.target.Get(ctx, Key(scope, name))
	if err != nil {
		return model.EmptyAddr, err
	}

	return DecodeAddr(data)
}

// Healthy reports the result of the last keep-alive ping.
func (s *Service) Healthy() bool {
	return s.healthy.Load()
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Written:  s.written.Load(),
		Failed:   s.failed.Load(),
		Dropped:  s.dropped.Load(),
		Attempts: s.attempts.Load(),
		Pings:    s.pings.Load(),
	}
}

// Close stops accepting notifications, writes the queued ones and stops
// the keep-alive loop.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	close(s.queue)
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}

	s.worker.Wait()
	s.cancel()
	s.pinger.Wait()

	return nil
}

func (s *Service) run() {
	defer s.worker.Done()

	for n := range s.queue {
		if err := s.write(n); err != nil {
			s.failed.Add(1)
			s.logger.Error("mirror write failed", "key", n.Key(), "error", err)
			continue
		}

		s.written.Add(1)
	}
}

// write sets one key with up to MaxRetries attempts. Attempts after the
// first are paced by the retry limiter.
func (s *Service) write(n Notification) error {
	value := EncodeAddr(n.Addr)

	var err error

	for attempt := range s.cfg.maxRetries {
		if attempt > 0 {
			if werr := s.limiter.Wait(s.ctx); werr != nil {
				return errors.Join(err, werr)
			}
		}

		s.attempts.Add(1)

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.timeout)
		err = s.target.Set(ctx, n.Key(), value)
		cancel()

		if err == nil {
			return nil
		}

		s.logger.Debug("mirror write attempt failed", "key", n.Key(), "attempt", attempt+1, "error", err)
	}

	return err
}

func (s *Service) keepAlive() {
	defer s.pinger.Done()

	ticker := time.NewTicker(s.cfg.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.ping()
		}
	}
}

func (s *Service) ping() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.timeout)
	defer cancel()

	s.pings.Add(1)

	err := s.target.Ping(ctx)
	ok := err == nil

	if s.healthy.Swap(ok) != ok {
		if ok {
			s.logger.Info("mirror target reachable again")
		} else {
			s.logger.Warn("mirror target unreachable", "error", err)
		}
	}
}
