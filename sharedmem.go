package concrt

import (
	"hash/fnv"

	"github.com/concrt-go/concrt/internal/shared"
)

// Public re-exports of the shared-memory layer, backed by
// internal/shared. These are the cross-goroutine-safe containers a
// parallel worker and the main goroutine may both touch.
type (
	// SharedMemoryBuffer is a header-checksummed shared byte region.
	SharedMemoryBuffer = shared.Buffer
	// SharedMemoryManager is the named buffer pool with worker-association
	// tracking and LRU eviction.
	SharedMemoryManager = shared.Manager
	// MultiProducerQueue is the MPMC circular shared queue.
	MultiProducerQueue[T any] = shared.Queue[T]
	// PriorityQueue is the binary max-heap shared priority queue.
	PriorityQueue[T any] = shared.PriorityQueue[T]
	// SharedMap is the separate-chaining shared hash table guarded by a
	// single mutex.
	SharedMap[K comparable, V any] = shared.Map[K, V]
	// ConcurrentHashMap is the segmented shared hash table.
	ConcurrentHashMap[K comparable, V any] = shared.ConcurrentHashMap[K, V]
	// SharedChannel is the framed, optionally-batched/compressed/
	// checksummed shared-memory channel.
	SharedChannel = shared.Channel
)

// NewSharedMemoryManager constructs a SharedMemoryManager capped at
// maxBuffers live buffers (non-positive means unbounded).
func NewSharedMemoryManager(maxBuffers int) *SharedMemoryManager {
	return shared.NewManager(maxBuffers)
}

// NewSharedMemoryBuffer allocates a fresh SharedMemoryBuffer of size bytes
// with the given header flags (see FlagReadOnly, FlagChecksumed, etc.).
func NewSharedMemoryBuffer(size int, flags uint32) (*SharedMemoryBuffer, error) {
	return shared.Allocate(size, flags)
}

// AttachSharedMemoryBuffer wraps an existing header+payload region,
// validating its magic and version.
func AttachSharedMemoryBuffer(region []byte) (*SharedMemoryBuffer, error) {
	return shared.Attach(region)
}

// NewMultiProducerQueue constructs a fixed-capacity MPMC shared queue.
func NewMultiProducerQueue[T any](capacity int) (*MultiProducerQueue[T], error) {
	return shared.NewQueue[T](capacity)
}

// NewPriorityQueue constructs an empty shared priority queue.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return shared.NewPriorityQueue[T]()
}

// StringHash is a convenience FNV-1a hash for string keys, suitable for
// NewSharedMap/NewConcurrentHashMap's hash parameter.
func StringHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// NewSharedMap constructs a SharedMap with the given initial bucket count,
// hash function, and load-factor diagnostic threshold (default 0.75 if
// <= 0).
func NewSharedMap[K comparable, V any](buckets int, hash func(K) uint64, loadFactor float64) *SharedMap[K, V] {
	return shared.NewMap[K, V](buckets, hash, loadFactor)
}

// NewConcurrentHashMap constructs a ConcurrentHashMap with segments
// segments (non-positive means 16, capped at 64) of bucketsPerSegment
// buckets each.
func NewConcurrentHashMap[K comparable, V any](segments, bucketsPerSegment int, hash func(K) uint64, loadFactor float64) *ConcurrentHashMap[K, V] {
	return shared.NewConcurrentHashMap[K, V](segments, bucketsPerSegment, hash, loadFactor)
}

// NewSharedChannel constructs a framed shared-memory channel with room for
// capacity pending frames. compressionThreshold <= 0 disables compression.
func NewSharedChannel(capacity int, enableChecksum bool, compressionThreshold int) *SharedChannel {
	return shared.NewChannel(capacity, enableChecksum, compressionThreshold)
}
