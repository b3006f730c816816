package concrt

import (
	"errors"
	"time"
)

// This file implements the marshal/proxy layer: when a value that lives
// on the main goroutine needs to be observed from a parallel worker, it
// crosses as a tagged snapshot, and the worker installs a typed proxy
// that supports only the operations that can be safely expressed across
// that boundary. Functions cross by a stable registry id instead of
// serialized source text.

// ErrFunctionNotRegistered is returned by Runtime.SpawnByName when no
// func() (any, error) is registered under the requested name, whatever
// SpawnOptions are passed.
var ErrFunctionNotRegistered = errors.New("concrt: function not registered")

// SpawnByName resolves name in the Runtime's function registry and spawns
// it - the same resolution path a parallel dispatch takes, where a
// registered function crosses the worker boundary by id. Go has
// no runtime eval, so a registry miss always fails with
// ErrFunctionNotRegistered regardless of Strict - there is no function
// body to fall back to. Strict instead governs what happens when
// SpawnOptions.Parallel is requested but no parallel backend is
// initialized: by default SpawnByName falls back to running the resolved
// function on the cooperative loop; with Strict set it fails outright with
// ErrParallelNotInitialized.
func (rt *Runtime) SpawnByName(name string, opts ...*SpawnOptions) *Future[any] {
	future := NewFuture[any]()

	var so SpawnOptions
	if len(opts) > 0 && opts[0] != nil {
		so = *opts[0]
	}

	raw, ok := rt.LookupFunction(name)
	if !ok {
		future.Reject(ErrFunctionNotRegistered)
		return future
	}
	fn, ok := raw.(func() (any, error))
	if !ok {
		future.Reject(ErrFunctionNotRegistered)
		return future
	}

	if so.Parallel && !rt.hasParallelPool() {
		if so.Strict {
			future.Reject(ErrParallelNotInitialized)
			return future
		}
		so.Parallel = false
	}

	return rt.Spawn(fn, &so)
}

// ContextSnapshot is the tagged, minimal state a Context carries across
// the worker boundary: an id (for correlating later UpdateState pushes), a
// deadline if any, its error at snapshot time, and the resolved key/value
// bindings walked up the parent chain (nearest binding wins).
type ContextSnapshot struct {
	ID          string
	HasDeadline bool
	Deadline    time.Time
	Err         error
	Values      map[any]any
}

// SnapshotContext captures ctx's current state for transfer to a worker.
// Values are resolved eagerly (walking the parent chain) since a worker
// has no access to the main goroutine's Context tree.
func SnapshotContext(ctx *Context) ContextSnapshot {
	snap := ContextSnapshot{
		Err:    ctx.Err(),
		Values: make(map[any]any),
	}
	snap.Deadline, snap.HasDeadline = ctx.Deadline()

	for n := ctx; n != nil; n = n.parent {
		if n.key != nil {
			if _, exists := snap.Values[n.key]; !exists {
				snap.Values[n.key] = n.val
			}
		}
	}
	return snap
}

// ProxyContext is the worker-side stand-in for a main-thread Context: it
// satisfies the same method set (Deadline/Done/Err/Value) by re-reading a
// ContextSnapshot, optionally refreshed over time via UpdateState as the
// main-thread context's state changes.
type ProxyContext struct {
	snap ContextSnapshot
	done chan struct{}
}

// NewProxyContext installs a ProxyContext from a snapshot taken on the
// main goroutine.
func NewProxyContext(snap ContextSnapshot) *ProxyContext {
	p := &ProxyContext{snap: snap, done: make(chan struct{})}
	if snap.Err != nil {
		close(p.done)
	}
	return p
}

// Deadline implements context.Context.
func (p *ProxyContext) Deadline() (time.Time, bool) { return p.snap.Deadline, p.snap.HasDeadline }

// Done implements context.Context.
func (p *ProxyContext) Done() <-chan struct{} { return p.done }

// Err implements context.Context.
func (p *ProxyContext) Err() error { return p.snap.Err }

// Value implements context.Context, serving only the values resolved at
// snapshot time - a proxy cannot walk a parent chain it never saw.
func (p *ProxyContext) Value(key any) any { return p.snap.Values[key] }

// UpdateState pushes a state transition observed on the main thread (e.g.
// the real Context was cancelled after the snapshot was taken) into this
// proxy. It is a no-op once the proxy already observed a non-nil error,
// matching the monotonic "once errored, stays errored" invariant.
func (p *ProxyContext) UpdateState(err error) {
	if err == nil || p.snap.Err != nil {
		return
	}
	p.snap.Err = err
	close(p.done)
}

// MutexHandle is the tagged snapshot of a Mutex crossing the worker
// boundary.
type MutexHandle struct{ Locked bool }

// SnapshotMutex captures m's current occupancy.
func SnapshotMutex(m *Mutex) MutexHandle { return MutexHandle{Locked: m.IsLocked()} }

// ProxyMutex is the worker-side stand-in for a Mutex. Mutex is simple
// enough that limited cross-thread guarantees are an acceptable,
// explicitly documented trade-off: mutating calls log a warning (if a
// logger is supplied) and report success without taking any lock, since
// nothing actually serializes worker goroutines against the main
// goroutine's Mutex state. Read-only observers reflect the snapshot.
// Callers that need real cross-worker exclusion should use the
// shared-memory AtomicMutex instead of passing a Mutex across.
type ProxyMutex struct {
	handle MutexHandle
	logger *Logger
}

// NewProxyMutex installs a ProxyMutex from a snapshot, optionally logging
// through logger.
func NewProxyMutex(handle MutexHandle, logger *Logger) *ProxyMutex {
	return &ProxyMutex{handle: handle, logger: logger}
}

// IsLocked reflects the snapshot taken at proxy installation; it does not
// track further changes on the main thread.
func (p *ProxyMutex) IsLocked() bool { return p.handle.Locked }

// Lock is a documented no-op: it warns (if logged) and reports success.
func (p *ProxyMutex) Lock() error {
	p.warn("Lock")
	return nil
}

// Unlock is a documented no-op: it warns (if logged) and reports success.
func (p *ProxyMutex) Unlock() error {
	p.warn("Unlock")
	return nil
}

func (p *ProxyMutex) warn(method string) {
	if p.logger == nil {
		return
	}
	p.logger.Warning().Str("method", method).Log("concrt: proxy Mutex has no effect across the worker boundary")
}

// SemaphoreHandle is the tagged snapshot of a Semaphore crossing the
// worker boundary.
type SemaphoreHandle struct{ Available, Max int }

// SnapshotSemaphore captures s's current occupancy.
func SnapshotSemaphore(s *Semaphore) SemaphoreHandle {
	return SemaphoreHandle{Available: s.Available(), Max: s.max}
}

// ProxySemaphore is the worker-side stand-in for a Semaphore, with the
// same documented-limitation policy as ProxyMutex.
type ProxySemaphore struct {
	handle SemaphoreHandle
	logger *Logger
}

// NewProxySemaphore installs a ProxySemaphore from a snapshot.
func NewProxySemaphore(handle SemaphoreHandle, logger *Logger) *ProxySemaphore {
	return &ProxySemaphore{handle: handle, logger: logger}
}

// Available reflects the snapshot.
func (p *ProxySemaphore) Available() int { return p.handle.Available }

// Acquire is a documented no-op: it warns (if logged) and reports success.
func (p *ProxySemaphore) Acquire() error {
	p.warn("Acquire")
	return nil
}

// Release is a documented no-op: it warns (if logged) and reports success.
func (p *ProxySemaphore) Release() error {
	p.warn("Release")
	return nil
}

func (p *ProxySemaphore) warn(method string) {
	if p.logger == nil {
		return
	}
	p.logger.Warning().Str("method", method).Log("concrt: proxy Semaphore has no effect across the worker boundary")
}

// RWMutexHandle is the tagged snapshot of an RWMutex crossing the worker
// boundary.
type RWMutexHandle struct {
	Readers       int
	WriterLocked  bool
	WriterWaiting bool
}

// SnapshotRWMutex captures rw's current occupancy.
func SnapshotRWMutex(rw *RWMutex) RWMutexHandle {
	s := rw.GetState()
	return RWMutexHandle{Readers: s.Readers, WriterLocked: s.WriterLocked, WriterWaiting: s.WriterWaiting}
}

// ProxyRWMutex is the worker-side stand-in for an RWMutex. Its fairness
// protocol (writer preference, reader batching on release) cannot be
// replicated correctly across the boundary, so unlike ProxyMutex and
// ProxySemaphore the API is restricted instead of degraded: read-only
// observers reflect the snapshot, but every mutating call fails outright
// with ErrProxyUnsupported instead of silently no-opping.
type ProxyRWMutex struct {
	handle RWMutexHandle
}

// NewProxyRWMutex installs a ProxyRWMutex from a snapshot.
func NewProxyRWMutex(handle RWMutexHandle) *ProxyRWMutex {
	return &ProxyRWMutex{handle: handle}
}

// GetState reflects the snapshot taken at proxy installation.
func (p *ProxyRWMutex) GetState() RWMutexState {
	return RWMutexState{Readers: p.handle.Readers, WriterLocked: p.handle.WriterLocked, WriterWaiting: p.handle.WriterWaiting}
}

// IsLocked / IsReadLocked / IsWriteLocked reflect the snapshot.
func (p *ProxyRWMutex) IsLocked() bool      { return p.handle.WriterLocked || p.handle.Readers > 0 }
func (p *ProxyRWMutex) IsReadLocked() bool  { return p.handle.Readers > 0 }
func (p *ProxyRWMutex) IsWriteLocked() bool { return p.handle.WriterLocked }

// RLock / Lock / RUnlock / Unlock always fail: RWMutex offers no
// supported cross-worker mutation path (see type doc).
func (p *ProxyRWMutex) RLock() error   { return ErrProxyUnsupported }
func (p *ProxyRWMutex) Lock() error    { return ErrProxyUnsupported }
func (p *ProxyRWMutex) RUnlock() error { return ErrProxyUnsupported }
func (p *ProxyRWMutex) Unlock() error  { return ErrProxyUnsupported }

// ChannelHandle is the tagged snapshot of a Channel crossing the worker
// boundary.
type ChannelHandle struct {
	Closed   bool
	Length   int
	Capacity int
}

// SnapshotChannel captures ch's current state.
func SnapshotChannel[T any](ch *Channel[T]) ChannelHandle {
	return ChannelHandle{Closed: ch.IsClosed(), Length: ch.Len(), Capacity: ch.Capacity()}
}

// ProxyChannel is the worker-side stand-in for a Channel: it supports
// only non-blocking operations and read-only introspection across the
// boundary. TryReceive always reports no value and TrySend always reports
// failure, since the proxy has no access to the main goroutine's actual
// waiter queues; blocking Send/Receive fail outright rather than hanging
// forever.
type ProxyChannel[T any] struct {
	handle ChannelHandle
}

// NewProxyChannel installs a ProxyChannel from a snapshot.
func NewProxyChannel[T any](handle ChannelHandle) *ProxyChannel[T] {
	return &ProxyChannel[T]{handle: handle}
}

// TryReceive always reports no value available, per the documented proxy
// limitation.
func (p *ProxyChannel[T]) TryReceive() (value T, ok bool) { return value, false }

// TrySend always reports failure, per the documented proxy limitation.
func (p *ProxyChannel[T]) TrySend(T) bool { return false }

// IsClosed / Len / Capacity reflect the snapshot.
func (p *ProxyChannel[T]) IsClosed() bool { return p.handle.Closed }
func (p *ProxyChannel[T]) Len() int       { return p.handle.Length }
func (p *ProxyChannel[T]) Capacity() int  { return p.handle.Capacity }

// Send / Receive always fail: a proxy cannot block on a rendezvous it
// cannot observe.
func (p *ProxyChannel[T]) Send(T) error {
	return ErrProxyUnsupported
}

func (p *ProxyChannel[T]) Receive() (value T, err error) {
	return value, ErrProxyUnsupported
}

// ProxySelect is the minimal select implementation available inside a
// worker: since every proxy channel's try-methods always
// fail, ProxySelect can at best run the default branch or time out - the
// main thread remains the sole authority for blocking rendezvous.
func ProxySelect(opts ...SelectOption) (ranDefault bool) {
	cfg := resolveSelectOptions(opts)
	if cfg.defaultFn != nil {
		cfg.defaultFn()
		return true
	}
	if cfg.hasTimeout {
		time.Sleep(cfg.timeout)
	}
	return false
}
