package concrt

import "time"

// Sentinel and bound constants for timeouts and capacity validation.
const (
	// InfiniteTimeout disables the deadline for an operation.
	InfiniteTimeout int64 = -1
	// MaxTimeout is the largest timeout, in milliseconds, accepted by any
	// constructor or operation in this package (24 hours).
	MaxTimeout int64 = 86_400_000
	// MaxChannelBuffer bounds Channel buffer capacity.
	MaxChannelBuffer = 1_000_000
	// MaxWorkerPoolSize bounds the parallel backend's worker count.
	MaxWorkerPoolSize = 10_000
)

// Default timeouts applied when a constructor's option does not override
// them explicitly.
const (
	DefaultTimeout          = 5000 * time.Millisecond
	DefaultChannelTimeout   = 1000 * time.Millisecond
	DefaultMutexTimeout     = 3000 * time.Millisecond
	DefaultSemaphoreTimeout = 2000 * time.Millisecond
)

// Shared buffer header layout: 24 bytes, big-endian.
const (
	SharedBufferMagic      uint32 = 0x474F4E45
	SharedBufferVersion    uint16 = 1
	SharedBufferHeaderSize        = 24
)

// Shared buffer flag bits.
const (
	FlagReadOnly   uint32 = 1 << 0
	FlagCompressed uint32 = 1 << 1
	FlagEncrypted  uint32 = 1 << 2
	FlagChecksumed uint32 = 1 << 3
	FlagCircular   uint32 = 1 << 4
)
