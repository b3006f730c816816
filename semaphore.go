package concrt

import (
	"sync"
	"time"
)

// Semaphore is a counting permit pool with FIFO acquisition discipline.
type Semaphore struct {
	mu             sync.Mutex
	max            int
	available      int
	waiters        []chan struct{}
	defaultTimeout time.Duration
}

type semaphoreOptions struct {
	defaultTimeout time.Duration
}

// SemaphoreOption configures a Semaphore constructed by NewSemaphore.
type SemaphoreOption interface {
	applySemaphore(*semaphoreOptions)
}

type semaphoreOptionImpl struct{ fn func(*semaphoreOptions) }

func (s *semaphoreOptionImpl) applySemaphore(opts *semaphoreOptions) { s.fn(opts) }

// WithSemaphoreTimeout overrides the default acquire timeout.
func WithSemaphoreTimeout(d time.Duration) SemaphoreOption {
	return &semaphoreOptionImpl{func(opts *semaphoreOptions) { opts.defaultTimeout = d }}
}

func resolveSemaphoreOptions(opts []SemaphoreOption) *semaphoreOptions {
	cfg := &semaphoreOptions{defaultTimeout: DefaultSemaphoreTimeout}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applySemaphore(cfg)
	}
	return cfg
}

// NewSemaphore constructs a Semaphore with permits available permits.
func NewSemaphore(permits int, opts ...SemaphoreOption) (*Semaphore, error) {
	if permits < 0 {
		return nil, ErrInvalidConcurrency
	}
	cfg := resolveSemaphoreOptions(opts)
	return &Semaphore{max: permits, available: permits, defaultTimeout: cfg.defaultTimeout}, nil
}

// TryAcquire attempts to acquire a permit without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available > 0 {
		s.available--
		return true
	}
	return false
}

// Acquire blocks until a permit is available or timeout elapses.
func (s *Semaphore) Acquire(timeout ...time.Duration) error {
	s.mu.Lock()
	if s.available > 0 {
		s.available--
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	return awaitTimed(ch, resolveOpTimeout(s.defaultTimeout, timeout), func() {
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ch {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}, ErrSemaphoreTimeout)
}

// Release returns a permit, waking the earliest FIFO waiter if any.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(next) // permit transferred directly, available unchanged
		return
	}
	if s.available < s.max {
		s.available++
	}
}

// Available returns the current permit count.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// InUse returns max - available, satisfying the invariant available+inUse==max.
func (s *Semaphore) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max - s.available
}
