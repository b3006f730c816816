package concrt

import (
	"sync"
	"time"
)

type mutexOptions struct {
	defaultTimeout time.Duration
	name           string
}

// MutexOption configures a Mutex constructed by NewMutex.
type MutexOption interface {
	applyMutex(*mutexOptions)
}

type mutexOptionImpl struct{ fn func(*mutexOptions) }

func (m *mutexOptionImpl) applyMutex(opts *mutexOptions) { m.fn(opts) }

// WithMutexTimeout overrides the default lock timeout.
func WithMutexTimeout(d time.Duration) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) { opts.defaultTimeout = d }}
}

// WithMutexName attaches a diagnostic name.
func WithMutexName(name string) MutexOption {
	return &mutexOptionImpl{func(opts *mutexOptions) { opts.name = name }}
}

func resolveMutexOptions(opts []MutexOption) *mutexOptions {
	cfg := &mutexOptions{defaultTimeout: DefaultMutexTimeout}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyMutex(cfg)
	}
	return cfg
}

// Mutex is a binary lock with an optional timeout, FIFO waiter queue, and a
// contract error for unlock-by-non-holder.
type Mutex struct {
	mu             sync.Mutex
	locked         bool
	waiters        []chan struct{}
	defaultTimeout time.Duration
	name           string
}

// NewMutex constructs an unlocked Mutex.
func NewMutex(opts ...MutexOption) *Mutex {
	cfg := resolveMutexOptions(opts)
	return &Mutex{defaultTimeout: cfg.defaultTimeout, name: cfg.name}
}

// TryLock attempts to acquire the lock without blocking.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Lock blocks until the lock is acquired, the channel closes (not
// applicable here), or timeout elapses. With no argument, the configured
// default timeout applies; a negative value disables the deadline.
func (m *Mutex) Lock(timeout ...time.Duration) error {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	d := resolveOpTimeout(m.defaultTimeout, timeout)
	if d < 0 {
		<-ch
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		m.mu.Lock()
		for i, w := range m.waiters {
			if w == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				m.mu.Unlock()
				return ErrMutexLockTimeout
			}
		}
		m.mu.Unlock()
		// Already handed the lock; drain the (closed) channel and proceed.
		<-ch
		return nil
	}
}

// Unlock releases the lock, handing it directly to the next FIFO waiter if
// any, or clearing the flag. Unlocking a mutex not held by the caller
// (i.e. not locked at all) returns ErrMutexNotLocked.
func (m *Mutex) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		return ErrMutexNotLocked
	}
	if len(m.waiters) > 0 {
		next := m.waiters[0]
		m.waiters = m.waiters[1:]
		close(next) // lock stays held, transferred to next
		return nil
	}
	m.locked = false
	return nil
}

// IsLocked reports whether the mutex is currently held.
func (m *Mutex) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// RWMutexState describes the current occupancy of an RWMutex, returned by
// GetState for introspection.
type RWMutexState struct {
	Readers       int
	WriterLocked  bool
	WriterWaiting bool
}

// RWMutex is a multiple-reader/single-writer lock with writer preference
// (new readers block while a writer is waiting) and reader batching on
// release (all queued readers wake before a single waiting writer).
type RWMutex struct {
	mu             sync.Mutex
	readers        int
	writerLocked   bool
	writerWaiting  int
	maxReaders     int
	readWaiters    []chan struct{}
	writeWaiters   []chan struct{}
	defaultTimeout time.Duration
}

// RWMutexOption configures an RWMutex constructed by NewRWMutex.
type RWMutexOption interface {
	applyRWMutex(*rwMutexOptions)
}

type rwMutexOptions struct {
	defaultTimeout time.Duration
	maxReaders     int
}

type rwMutexOptionImpl struct{ fn func(*rwMutexOptions) }

func (r *rwMutexOptionImpl) applyRWMutex(opts *rwMutexOptions) { r.fn(opts) }

// WithMaxReaders caps concurrent readers; TryRLock fails with
// ErrRWMutexTooManyReaders once the cap is reached. 0 (the default) means
// unbounded.
func WithMaxReaders(n int) RWMutexOption {
	return &rwMutexOptionImpl{func(opts *rwMutexOptions) { opts.maxReaders = n }}
}

// WithRWMutexTimeout overrides the default lock timeout.
func WithRWMutexTimeout(d time.Duration) RWMutexOption {
	return &rwMutexOptionImpl{func(opts *rwMutexOptions) { opts.defaultTimeout = d }}
}

func resolveRWMutexOptions(opts []RWMutexOption) *rwMutexOptions {
	cfg := &rwMutexOptions{defaultTimeout: DefaultMutexTimeout}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRWMutex(cfg)
	}
	return cfg
}

// NewRWMutex constructs an unlocked RWMutex.
func NewRWMutex(opts ...RWMutexOption) *RWMutex {
	cfg := resolveRWMutexOptions(opts)
	return &RWMutex{defaultTimeout: cfg.defaultTimeout, maxReaders: cfg.maxReaders}
}

// TryRLock attempts to acquire a read lock without blocking. It fails if a
// writer holds the lock, a writer is waiting (writer preference), or the
// reader cap is reached.
func (rw *RWMutex) TryRLock() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.tryRLockLocked()
}

func (rw *RWMutex) tryRLockLocked() bool {
	if rw.writerLocked || rw.writerWaiting > 0 {
		return false
	}
	if rw.maxReaders > 0 && rw.readers >= rw.maxReaders {
		return false
	}
	rw.readers++
	return true
}

// TryLock attempts to acquire the write lock without blocking.
func (rw *RWMutex) TryLock() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.writerLocked || rw.readers > 0 {
		return false
	}
	rw.writerLocked = true
	return true
}

// RLock blocks until a read lock is acquired or timeout elapses.
func (rw *RWMutex) RLock(timeout ...time.Duration) error {
	rw.mu.Lock()
	if rw.tryRLockLocked() {
		rw.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	rw.readWaiters = append(rw.readWaiters, ch)
	rw.mu.Unlock()

	return awaitTimed(ch, resolveOpTimeout(rw.defaultTimeout, timeout), func() {
		rw.mu.Lock()
		for i, w := range rw.readWaiters {
			if w == ch {
				rw.readWaiters = append(rw.readWaiters[:i], rw.readWaiters[i+1:]...)
				break
			}
		}
		rw.mu.Unlock()
	}, ErrRWMutexReadLockTimeout)
}

// Lock blocks until the write lock is acquired or timeout elapses. While
// waiting, it marks writerWaiting so new readers block behind it.
func (rw *RWMutex) Lock(timeout ...time.Duration) error {
	rw.mu.Lock()
	if !rw.writerLocked && rw.readers == 0 {
		rw.writerLocked = true
		rw.mu.Unlock()
		return nil
	}
	rw.writerWaiting++
	ch := make(chan struct{})
	rw.writeWaiters = append(rw.writeWaiters, ch)
	rw.mu.Unlock()

	return awaitTimed(ch, resolveOpTimeout(rw.defaultTimeout, timeout), func() {
		rw.mu.Lock()
		for i, w := range rw.writeWaiters {
			if w == ch {
				rw.writeWaiters = append(rw.writeWaiters[:i], rw.writeWaiters[i+1:]...)
				rw.writerWaiting--
				break
			}
		}
		rw.mu.Unlock()
	}, ErrRWMutexWriteLockTimeout)
}

// RUnlock releases a read lock. Once the reader count reaches zero, a
// single waiting writer (if any) is woken; with no writer queued, a
// reader that was blocked solely on the maxReaders cap is admitted as
// soon as the count drops below the cap.
func (rw *RWMutex) RUnlock() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.readers == 0 {
		return ErrRWMutexNotReadLocked
	}
	rw.readers--
	if rw.readers == 0 && len(rw.writeWaiters) > 0 {
		next := rw.writeWaiters[0]
		rw.writeWaiters = rw.writeWaiters[1:]
		rw.writerWaiting--
		rw.writerLocked = true
		close(next)
		return nil
	}
	if len(rw.writeWaiters) == 0 {
		rw.wakeReadersLocked()
	}
	return nil
}

// Unlock releases the write lock. Queued readers wake first
// (readers-prioritized on release), admitted only up to the maxReaders
// cap - any beyond it stay queued for later RUnlocks; if no readers were
// waiting, a single queued writer is woken instead.
func (rw *RWMutex) Unlock() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.writerLocked {
		return ErrRWMutexNotWriteLocked
	}
	rw.writerLocked = false

	if len(rw.readWaiters) > 0 {
		rw.wakeReadersLocked()
		return nil
	}

	if len(rw.writeWaiters) > 0 {
		next := rw.writeWaiters[0]
		rw.writeWaiters = rw.writeWaiters[1:]
		rw.writerWaiting--
		rw.writerLocked = true
		close(next)
	}
	return nil
}

// wakeReadersLocked admits queued readers while the maxReaders cap (if
// any) allows, leaving the rest queued. Must hold rw.mu; must only be
// called when no writer holds the lock.
func (rw *RWMutex) wakeReadersLocked() {
	for len(rw.readWaiters) > 0 && (rw.maxReaders <= 0 || rw.readers < rw.maxReaders) {
		w := rw.readWaiters[0]
		rw.readWaiters = rw.readWaiters[1:]
		rw.readers++
		close(w)
	}
}

// GetState returns a point-in-time snapshot of the lock's occupancy.
func (rw *RWMutex) GetState() RWMutexState {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return RWMutexState{
		Readers:       rw.readers,
		WriterLocked:  rw.writerLocked,
		WriterWaiting: rw.writerWaiting > 0,
	}
}

// IsLocked reports whether the RWMutex is held by a reader or a writer.
func (rw *RWMutex) IsLocked() bool {
	s := rw.GetState()
	return s.WriterLocked || s.Readers > 0
}

// IsReadLocked reports whether at least one reader holds the lock.
func (rw *RWMutex) IsReadLocked() bool { return rw.GetState().Readers > 0 }

// IsWriteLocked reports whether a writer holds the lock.
func (rw *RWMutex) IsWriteLocked() bool { return rw.GetState().WriterLocked }

// awaitTimed waits on ch, with timeout handling shared by RWMutex's
// RLock/Lock: d<0 waits indefinitely; on timeout, cleanup runs to remove
// the now-stale waiter entry, but if the entry was already handed off the
// close still arrives and is honored.
func awaitTimed(ch chan struct{}, d time.Duration, cleanup func(), timeoutErr error) error {
	if d < 0 {
		<-ch
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		select {
		case <-ch:
			return nil
		default:
		}
		cleanup()
		select {
		case <-ch:
			return nil
		default:
			return timeoutErr
		}
	}
}
