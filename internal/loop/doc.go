// Package loop implements the cooperative, single-goroutine scheduler that
// backs the concurrency runtime's task execution model: timers, one-shot
// futures, microtask scheduling, and cross-platform I/O readiness
// notification.
//
// # Architecture
//
// The scheduler is built around a [Loop] core that owns task scheduling,
// timer processing, and I/O readiness notification. Work submitted via
// [Loop.Submit] or [Loop.SubmitInternal] always executes on the loop's own
// goroutine; [Loop.Promisify] is the escape hatch for running blocking or
// CPU-bound work on a separate goroutine while still settling its result on
// the loop thread.
//
// [Promise] is a minimal one-shot future: it settles exactly once, fans out
// to every subscriber registered via [Promise.ToChannel], and is safe to
// read from any goroutine.
//
// # Platform Support
//
// I/O polling is implemented using platform-native mechanisms:
//   - macOS: kqueue
//   - Linux: epoll
//   - Windows: IOCP (I/O Completion Ports)
//
// File descriptor operations ([Loop.RegisterFD], [Loop.UnregisterFD],
// [Loop.ModifyFD]) provide cross-platform I/O readiness notification.
//
// # Thread Safety
//
// The loop is designed for concurrent access:
//   - [Loop.Submit] and [Loop.SubmitInternal] are safe to call from any goroutine
//   - [Loop.ScheduleMicrotask] is lock-free (MPSC ring buffer)
//   - Timer and FD registration methods are thread-safe
//   - [Loop.Promisify] settles its promise on the loop goroutine through
//     [Loop.SubmitInternal], or directly when the loop no longer accepts tasks
//
// # Execution Model
//
// The loop supports a dual-path execution model:
//   - Fast path (~50ns/task): channel-based scheduling for low-latency scenarios
//   - I/O path (~8-15us): poll-based scheduling when I/O FDs are registered
//
// Task priority ordering within each tick:
//  1. Timer callbacks (earliest deadline first)
//  2. Internal queue tasks ([Loop.SubmitInternal])
//  3. External queue tasks ([Loop.Submit])
//  4. Microtasks (drained after each macrotask when strict ordering is enabled)
//
// # Usage
//
//	l, err := loop.New(
//	    loop.WithStrictMicrotaskOrdering(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	l.Submit(loop.Task{Runnable: func() {
//	    _, _ = l.ScheduleTimer(100*time.Millisecond, func() {
//	        fmt.Println("Hello after 100ms")
//	        _ = l.Shutdown(context.Background())
//	    })
//	}})
//
//	if err := l.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package provides a small taxonomy of structured error types:
//   - [AggregateError]: collects errors from a fan-out of concurrent tasks
//   - [AbortError]: reported by cancellation via [AbortController]
//   - [TypeError], [RangeError]: for argument validation
//   - [TimeoutError]: for timed-out operations
//   - [PanicError]: wraps a panic recovered from a [Loop.Promisify] call
//
// All error types implement the standard [error] interface and an Unwrap
// method; [AggregateError] and [AbortError] also define Is() for type-based
// matching.
package loop
