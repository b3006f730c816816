package concrt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/concrt-go/concrt/internal/loop"
	"github.com/concrt-go/concrt/internal/registry"
	"github.com/concrt-go/concrt/internal/worker"
)

// ErrRuntimeClosed is returned by Spawn/SpawnAll once Close has been called.
var ErrRuntimeClosed = errors.New("concrt: runtime closed")

// ErrParallelAlreadyInitialized is returned by InitializeParallel when a
// worker pool already exists.
var ErrParallelAlreadyInitialized = errors.New("concrt: parallel backend already initialized")

// ErrParallelNotInitialized is returned by ShutdownParallel when no worker
// pool exists.
var ErrParallelNotInitialized = errors.New("concrt: parallel backend not initialized")

type runtimeOptions struct {
	metricsEnabled bool
	logger         *Logger
}

// RuntimeOption configures a Runtime constructed by NewRuntime.
type RuntimeOption interface {
	applyRuntime(*runtimeOptions)
}

type runtimeOptionImpl struct{ fn func(*runtimeOptions) }

func (r *runtimeOptionImpl) applyRuntime(opts *runtimeOptions) { r.fn(opts) }

// WithRuntimeMetrics enables the cooperative loop's built-in metrics
// collection (latency percentiles, queue depth, throughput).
func WithRuntimeMetrics(enabled bool) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) { opts.metricsEnabled = enabled }}
}

// WithRuntimeLogger attaches a structured logger for task panics and poll
// errors observed by the cooperative loop.
func WithRuntimeLogger(l *Logger) RuntimeOption {
	return &runtimeOptionImpl{func(opts *runtimeOptions) { opts.logger = l }}
}

func resolveRuntimeOptions(opts []RuntimeOption) *runtimeOptions {
	cfg := &runtimeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(cfg)
	}
	return cfg
}

// SpawnOptions configures an individual Spawn/SpawnAll call.
type SpawnOptions struct {
	// Parallel routes the task to the worker pool instead of the
	// cooperative loop. InitializeParallel must have been called first.
	Parallel bool
	// Strict, when set and combined with SpawnByName, rejects a Parallel
	// request outright (ErrParallelNotInitialized) when no worker pool is
	// running, instead of falling back to the cooperative loop. See the
	// function-registry resolution policy in proxy.go.
	Strict bool
}

// ParallelConfig configures the parallel Task backend started by
// InitializeParallel.
type ParallelConfig struct {
	// ThreadCount is the number of worker goroutines, each bound to its
	// own cooperative loop instance.
	ThreadCount int
	// TaskTimeout bounds how long ShutdownParallel waits for in-flight
	// jobs to drain before giving up on the remaining workers.
	// Non-positive means the pool's default.
	TaskTimeout time.Duration
}

// Runtime is the task runtime facade: a cooperative
// single-threaded event loop for the default execution mode, with an
// optional parallel worker pool for CPU-bound or blocking work. Every
// spawned task is tracked by a Future.
type Runtime struct {
	loop      *loop.Loop
	runCtx    context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}

	registry *registry.Registry

	mu     sync.Mutex
	pool   *worker.Pool
	closed bool
}

// NewRuntime constructs a Runtime and starts its cooperative loop on a
// dedicated goroutine.
func NewRuntime(opts ...RuntimeOption) (*Runtime, error) {
	cfg := resolveRuntimeOptions(opts)

	var loopOpts []loop.LoopOption
	if cfg.metricsEnabled {
		loopOpts = append(loopOpts, loop.WithMetrics(true))
	}
	if cfg.logger != nil {
		loopOpts = append(loopOpts, loop.WithLogger(cfg.logger))
	}

	l, err := loop.New(loopOpts...)
	if err != nil {
		return nil, err
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:      l,
		runCtx:    runCtx,
		runCancel: runCancel,
		runDone:   make(chan struct{}),
		registry:  registry.New(),
	}

	go func() {
		defer close(rt.runDone)
		_ = l.Run(runCtx)
	}()

	return rt, nil
}

// RegisterFunction makes fn callable by name from a parallel task. name
// must be unique for the lifetime of the Runtime.
func (rt *Runtime) RegisterFunction(name string, fn any) error {
	return rt.registry.Register(name, fn)
}

// LookupFunction resolves a previously registered function by name.
func (rt *Runtime) LookupFunction(name string) (any, bool) {
	return rt.registry.Lookup(name)
}

// Spawn submits fn for execution and returns a Future observing its
// result. By default fn runs on the cooperative loop; pass SpawnOptions
// with Parallel set to route it to the worker pool instead.
func (rt *Runtime) Spawn(fn func() (any, error), opts ...*SpawnOptions) *Future[any] {
	future := NewFuture[any]()

	var so SpawnOptions
	if len(opts) > 0 && opts[0] != nil {
		so = *opts[0]
	}

	rt.mu.Lock()
	closed := rt.closed
	pool := rt.pool
	rt.mu.Unlock()

	if closed {
		future.Reject(ErrRuntimeClosed)
		return future
	}

	if so.Parallel {
		if pool == nil {
			future.Reject(ErrParallelNotInitialized)
			return future
		}
		resultCh := pool.Submit(fn)
		go func() {
			r := <-resultCh
			if r.Err != nil {
				future.Reject(r.Err)
			} else {
				future.Resolve(r.Value)
			}
		}()
		return future
	}

	task := loop.Task{Runnable: func() {
		v, err := fn()
		if err != nil {
			future.Reject(err)
		} else {
			future.Resolve(v)
		}
	}}
	if err := rt.loop.Submit(task); err != nil {
		future.Reject(err)
	}
	return future
}

// SpawnWithTimeout runs fn on its own goroutine via
// internal/loop.PromisifyWithTimeout, cancelling its context after timeout
// elapses; the result is settled through the cooperative loop.
// Unlike Spawn, fn receives a context.Context it can observe for
// cancellation - suited to tasks that themselves perform blocking or
// long-running work and need to cooperate with a deadline.
func (rt *Runtime) SpawnWithTimeout(fn func(ctx context.Context) (any, error), timeout time.Duration) *Future[any] {
	future := NewFuture[any]()

	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		future.Reject(ErrRuntimeClosed)
		return future
	}

	p := rt.loop.PromisifyWithTimeout(rt.runCtx, timeout, fn)
	go func() {
		<-p.ToChannel()
		switch p.State() {
		case loop.Resolved:
			future.Resolve(p.Result())
		case loop.Rejected:
			if err, ok := p.Result().(error); ok {
				future.Reject(err)
			} else {
				future.Reject(ErrRuntimeClosed)
			}
		}
	}()
	return future
}

// SpawnAll spawns every fn and joins their results via a WaitGroup,
// returning a Future that resolves to the slice of per-task values in
// input order, or rejects with an *AggregateError if more than one task
// failed (or the single error, unwrapped, if exactly one did).
func (rt *Runtime) SpawnAll(fns []func() (any, error), opts ...*SpawnOptions) *Future[[]any] {
	joined := NewFuture[[]any]()
	if len(fns) == 0 {
		joined.Resolve(nil)
		return joined
	}

	results := make([]any, len(fns))
	wg := NewWaitGroup()
	wg.Add(len(fns))

	for i, fn := range fns {
		i, fn := i, fn
		future := rt.Spawn(fn, opts...)
		go func() {
			defer wg.Done()
			v, err, _ := func() (any, error, bool) {
				<-future.Done()
				v, err, ok := future.Result()
				return v, err, ok
			}()
			if err != nil {
				wg.AddError(err)
				return
			}
			results[i] = v
		}()
	}

	go func() {
		if err := wg.Wait(); err != nil {
			joined.Reject(err)
			return
		}
		joined.Resolve(results)
	}()

	return joined
}

// InitializeParallel starts the parallel worker pool. It fails if a pool
// already exists.
func (rt *Runtime) InitializeParallel(cfg ParallelConfig) error {
	if cfg.ThreadCount <= 0 || cfg.ThreadCount > MaxWorkerPoolSize {
		return ErrInvalidConcurrency
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.pool != nil {
		return ErrParallelAlreadyInitialized
	}

	pool, err := worker.New(cfg.ThreadCount, cfg.TaskTimeout)
	if err != nil {
		return err
	}
	rt.pool = pool
	return nil
}

// ShutdownParallel stops the worker pool, waiting for in-flight jobs to
// drain before returning.
func (rt *Runtime) ShutdownParallel(ctx *Context) error {
	rt.mu.Lock()
	pool := rt.pool
	rt.pool = nil
	rt.mu.Unlock()

	if pool == nil {
		return ErrParallelNotInitialized
	}
	return pool.Shutdown(stdContext(ctx))
}

// hasParallelPool reports whether a parallel worker pool is currently
// initialized, without racing Spawn's own check.
func (rt *Runtime) hasParallelPool() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.pool != nil
}

// Metrics returns the cooperative loop's live metrics (not a copy). It is nil
// unless WithRuntimeMetrics(true) was passed to NewRuntime.
func (rt *Runtime) Metrics() *loop.Metrics {
	return rt.loop.Metrics()
}

// Close stops the cooperative loop and any parallel worker pool, waiting
// for both to terminate.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}
	rt.closed = true
	pool := rt.pool
	rt.pool = nil
	rt.mu.Unlock()

	var firstErr error
	if pool != nil {
		if err := pool.Shutdown(context.Background()); err != nil {
			firstErr = err
		}
	}

	rt.runCancel()
	<-rt.runDone
	if err := rt.loop.Close(); err != nil && !errors.Is(err, loop.ErrLoopTerminated) && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// stdContext adapts a *Context to a standard context.Context for APIs
// (like worker.Pool.Shutdown) that require one. *Context already exposes
// the identical Deadline/Done/Err/Value method set, so it satisfies
// context.Context directly.
func stdContext(ctx *Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
