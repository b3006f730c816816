package concrt

import (
	"errors"
	"fmt"

	"github.com/concrt-go/concrt/internal/loop"
	"github.com/concrt-go/concrt/internal/shared"
)

// AggregateError is a re-export of the scheduler's aggregate error type,
// used to report multi-waiter failures (WaitGroup.Wait, SpawnAll, pattern
// registry health) as a single error value.
type AggregateError = loop.AggregateError

// Structured error kinds. Each carries a stable sentinel so callers can
// branch with errors.Is instead of string matching, per the taxonomy in
// the error-handling design: validation, contract, transient, aggregate.
var (
	// ErrChannelClosed is returned by Send against a closed Channel (and to
	// senders pending at Close), and by Receive once a closed Channel's
	// buffer has been drained.
	ErrChannelClosed = errors.New("concrt: channel closed")
	// ErrChannelTimeout is returned when a Send/Receive deadline elapses.
	ErrChannelTimeout = errors.New("concrt: channel operation timed out")
	// ErrChannelBufferFull names the buffer-full condition. TrySend reports
	// a full buffer as a false result; no operation in this package returns
	// this error.
	ErrChannelBufferFull = errors.New("concrt: channel buffer full")

	// ErrContextCancelled is the cause installed by WithCancel's cancel
	// function.
	ErrContextCancelled = errors.New("concrt: context cancelled")
	// ErrContextTimeout is the cause installed when a WithTimeout context
	// expires.
	ErrContextTimeout = errors.New("concrt: context timed out")
	// ErrContextDeadlineExceeded is the cause installed when a
	// WithDeadline context reaches its deadline.
	ErrContextDeadlineExceeded = errors.New("concrt: context deadline exceeded")

	// ErrMutexLockTimeout is returned by Lock when a configured timeout
	// elapses before the lock is acquired.
	ErrMutexLockTimeout = errors.New("concrt: mutex lock timed out")
	// ErrMutexNotLocked is returned by Unlock when the mutex is not held.
	ErrMutexNotLocked = errors.New("concrt: unlock of unlocked mutex")

	// ErrRWMutexReadLockTimeout / ErrRWMutexWriteLockTimeout mirror
	// ErrMutexLockTimeout for the reader/writer paths of RWMutex.
	ErrRWMutexReadLockTimeout  = errors.New("concrt: rwmutex read lock timed out")
	ErrRWMutexWriteLockTimeout = errors.New("concrt: rwmutex write lock timed out")
	// ErrRWMutexNotReadLocked / ErrRWMutexNotWriteLocked mirror
	// ErrMutexNotLocked for RWMutex.
	ErrRWMutexNotReadLocked  = errors.New("concrt: runlock without read lock")
	ErrRWMutexNotWriteLocked = errors.New("concrt: unlock without write lock")
	// ErrRWMutexTooManyReaders is returned by TryRLock once the configured
	// reader cap is reached.
	ErrRWMutexTooManyReaders = errors.New("concrt: too many concurrent readers")

	// ErrWaitGroupNegativeCounter is returned by Add when the resulting
	// counter would go negative.
	ErrWaitGroupNegativeCounter = errors.New("concrt: negative WaitGroup counter")

	// ErrSemaphoreTimeout is returned by Acquire when a configured timeout
	// elapses before a permit becomes available.
	ErrSemaphoreTimeout = errors.New("concrt: semaphore acquire timed out")

	// ErrInvalidTimeout / ErrInvalidBufferSize / ErrInvalidConcurrency are
	// validation errors, raised synchronously before any side effect.
	ErrInvalidTimeout     = errors.New("concrt: invalid timeout")
	ErrInvalidBufferSize  = errors.New("concrt: invalid buffer size")
	ErrInvalidConcurrency = errors.New("concrt: invalid concurrency")

	// ErrProxyUnsupported is returned by a worker-side proxy primitive when
	// the requested operation cannot be safely expressed across the
	// main-thread/worker boundary (see the RWMutex proxy policy).
	ErrProxyUnsupported = errors.New("concrt: operation not supported across worker boundary")

	// ErrLoadFactorExceeded is an informational error returned by SharedMap
	// and ConcurrentHashMap writes once the configured load factor has been
	// exceeded; the entry is still inserted. It is the same sentinel value
	// the internal shared layer returns, so errors.Is works on either.
	ErrLoadFactorExceeded = shared.ErrLoadFactorExceeded
)

// validateTimeout enforces the contract: InfiniteTimeout (-1) is valid and
// disables the deadline; any other negative value is rejected; values above
// MaxTimeout are rejected.
func validateTimeout(timeoutMs int64) error {
	if timeoutMs == InfiniteTimeout {
		return nil
	}
	if timeoutMs < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, timeoutMs)
	}
	if timeoutMs > MaxTimeout {
		return fmt.Errorf("%w: %d exceeds MaxTimeout", ErrInvalidTimeout, timeoutMs)
	}
	return nil
}
