// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package concrt implements a Go-style concurrency runtime on top of a
// cooperative, single-goroutine scheduler: tasks, typed channels, select,
// mutexes (plain and reader-writer), semaphores, one-shot init latches,
// wait groups, cancellation contexts, and periodic/one-shot timers, plus an
// optional parallel execution backend with shared-memory queues, maps, and
// channels for cross-goroutine coordination.
//
// # Architecture
//
// [Runtime] is the public facade over two Task backends. The cooperative
// backend runs every spawned task on a single scheduler goroutine (see
// internal package "loop") and is the default. The parallel backend, enabled
// via [Runtime.InitializeParallel], dispatches tasks to a fixed pool of
// worker goroutines, each bound to its own cooperative loop, so that proxy
// primitives installed inside a worker retain the same suspension semantics
// as the main thread.
//
// # Primitives
//
// [Channel] is a typed, FIFO, optionally-buffered communication primitive.
// [Select] multiplexes non-blocking and blocking operations across multiple
// channels. [Mutex], [RWMutex], [Semaphore], [WaitGroup], and [Once] are the
// in-process synchronization primitives. [Context] is a cancellation tree
// compatible with the standard library's context.Context. [Ticker] and
// [Timer] wrap the runtime's timer facility.
//
// # Shared memory
//
// Package internal/shared provides the atomics-over-shared-cells protocol,
// a checksummed shared byte buffer, a named buffer manager, and MPMC/
// priority/framed shared containers used to coordinate across parallel
// workers without copying arbitrary Go values across goroutines.
package concrt
