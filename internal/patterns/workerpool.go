package patterns

import (
	"context"
	"errors"
	"sync"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	microbatch "github.com/joeycumines/go-microbatch"

	"github.com/concrt-go/concrt/internal/loop"
	"github.com/concrt-go/concrt/internal/shared"
)

// Worker lifecycle event types dispatched on WorkerPool.Events.
const (
	EventWorkerCreated   = "worker:created"
	EventWorkerDestroyed = "worker:destroyed"
	EventAutoscaled      = "pool:autoscaled"
)

// ErrWorkerPoolClosed is returned by Submit once Close has been called.
var ErrWorkerPoolClosed = errors.New("patterns: worker pool closed")

// WorkerID identifies one worker managed by a WorkerPool.
type WorkerID string

// WorkItem is a unit of work submitted to a WorkerPool, with Priority
// feeding the priority-sorted task queue (higher values run first, ties
// FIFO by submission order - the same ordering PriorityQueue already
// provides).
type WorkItem struct {
	ID       string
	Priority int64
	Fn       func(ctx context.Context) (any, error)
}

// LoadBalancer selects which worker should receive the next WorkItem, given
// the current set of live workers and their outstanding load. Concrete
// pools may supply a custom balancer; RoundRobinBalancer is the default.
type LoadBalancer interface {
	SelectWorker(workers []WorkerID, load map[WorkerID]int) WorkerID
}

// RoundRobinBalancer is the default LoadBalancer: it cycles through
// workers in the order given, ignoring load.
type RoundRobinBalancer struct {
	mu   sync.Mutex
	next int
}

// SelectWorker implements LoadBalancer.
func (r *RoundRobinBalancer) SelectWorker(workers []WorkerID, _ map[WorkerID]int) WorkerID {
	if len(workers) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w := workers[r.next%len(workers)]
	r.next++
	return w
}

// LeastLoadedBalancer picks the worker with the smallest outstanding load.
type LeastLoadedBalancer struct{}

// SelectWorker implements LoadBalancer.
func (LeastLoadedBalancer) SelectWorker(workers []WorkerID, load map[WorkerID]int) WorkerID {
	var best WorkerID
	bestLoad := -1
	for _, w := range workers {
		l := load[w]
		if bestLoad == -1 || l < bestLoad {
			best, bestLoad = w, l
		}
	}
	return best
}

// WorkerPoolConfig configures a WorkerPool's autoscaling envelope and
// optional domain-dependency wiring.
type WorkerPoolConfig struct {
	MinWorkers int
	MaxWorkers int
	// IdleTimeout is how long an idle worker above MinWorkers survives
	// before Autoscale considers destroying it.
	IdleTimeout time.Duration
	// ScaleUpThreshold / ScaleDownThreshold are queue-depth-per-worker
	// ratios that Autoscale compares against to grow/shrink the pool.
	ScaleUpThreshold   float64
	ScaleDownThreshold float64
	LoadBalancer       LoadBalancer
	// RateLimiter, if set, gates Submit dispatch.
	RateLimiter *catrate.Limiter
	// RateLimitCategory is the category key passed to RateLimiter.Allow.
	RateLimitCategory any
}

// Hooks are the operations a concrete pool must supply; WorkerPool is
// otherwise a complete, usable skeleton.
type Hooks struct {
	CreateWorker  func() (WorkerID, error)
	DestroyWorker func(WorkerID) error
	ExecuteTask   func(ctx context.Context, worker WorkerID, item WorkItem) (any, error)
}

// WorkerPool is a worker-pool skeleton: a priority-sorted task queue
// (backed directly by internal/shared.PriorityQueue rather than a second
// heap implementation), configurable min/max workers, idle timeout,
// autoscaling thresholds, and a pluggable LoadBalancer.
type WorkerPool struct {
	cfg   WorkerPoolConfig
	hooks Hooks

	mu      sync.Mutex
	workers []WorkerID
	load    map[WorkerID]int
	lastUse map[WorkerID]time.Time
	closed  bool

	queue *shared.PriorityQueue[WorkItem]

	// metricsBatcher coalesces metrics snapshots into windowed,
	// size-or-timeout-triggered flushes.
	metricsBatcher *microbatch.Batcher[Metrics]

	// Events publishes worker lifecycle notifications (created/destroyed,
	// autoscale decisions).
	Events *loop.EventTarget
}

// NewWorkerPool constructs a WorkerPool with cfg and hooks, starting
// cfg.MinWorkers workers immediately. flushMetrics, if non-nil, is called
// (possibly with multiple snapshots coalesced into one window) whenever
// RecordMetrics is used to publish a snapshot.
func NewWorkerPool(cfg WorkerPoolConfig, hooks Hooks, flushMetrics func(ctx context.Context, snapshots []Metrics) error) (*WorkerPool, error) {
	if cfg.MinWorkers < 0 || cfg.MaxWorkers <= 0 || cfg.MinWorkers > cfg.MaxWorkers {
		return nil, errors.New("patterns: invalid worker pool bounds")
	}
	if cfg.LoadBalancer == nil {
		cfg.LoadBalancer = &RoundRobinBalancer{}
	}
	if hooks.CreateWorker == nil || hooks.DestroyWorker == nil || hooks.ExecuteTask == nil {
		return nil, errors.New("patterns: worker pool hooks must be fully supplied")
	}

	wp := &WorkerPool{
		cfg:     cfg,
		hooks:   hooks,
		load:    make(map[WorkerID]int),
		lastUse: make(map[WorkerID]time.Time),
		queue:   shared.NewPriorityQueue[WorkItem](),
		Events:  loop.NewEventTarget(),
	}

	if flushMetrics != nil {
		wp.metricsBatcher = microbatch.NewBatcher[Metrics](&microbatch.BatcherConfig{
			MaxSize:       32,
			FlushInterval: 200 * time.Millisecond,
		}, func(ctx context.Context, jobs []Metrics) error {
			return flushMetrics(ctx, jobs)
		})
	}

	for i := 0; i < cfg.MinWorkers; i++ {
		if err := wp.spawnWorker(); err != nil {
			return nil, err
		}
	}

	return wp, nil
}

func (wp *WorkerPool) spawnWorker() error {
	id, err := wp.hooks.CreateWorker()
	if err != nil {
		return err
	}
	wp.mu.Lock()
	wp.workers = append(wp.workers, id)
	wp.load[id] = 0
	wp.lastUse[id] = time.Now()
	wp.mu.Unlock()
	wp.Events.DispatchEvent(loop.NewCustomEvent(EventWorkerCreated, id).EventPtr())
	return nil
}

// Submit enqueues item by priority and dispatches it to a selected worker.
// The call blocks until the item's result is available or ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, item WorkItem) (any, error) {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return nil, ErrWorkerPoolClosed
	}
	wp.mu.Unlock()

	if wp.cfg.RateLimiter != nil {
		if _, ok := wp.cfg.RateLimiter.Allow(wp.cfg.RateLimitCategory); !ok {
			return nil, errors.New("patterns: rate limit exceeded")
		}
	}

	wp.queue.Enqueue(item, item.Priority)

	popped, err := wp.queue.Dequeue()
	if err != nil {
		return nil, err
	}

	wp.mu.Lock()
	worker := wp.cfg.LoadBalancer.SelectWorker(wp.workers, wp.load)
	if worker == "" {
		wp.mu.Unlock()
		return nil, errors.New("patterns: no workers available")
	}
	wp.load[worker]++
	wp.lastUse[worker] = time.Now()
	wp.mu.Unlock()

	value, execErr := wp.hooks.ExecuteTask(ctx, worker, popped)

	wp.mu.Lock()
	wp.load[worker]--
	wp.mu.Unlock()

	return value, execErr
}

// Autoscale compares current queue depth against the pool's thresholds
// and grows or shrinks toward cfg.MinWorkers/cfg.MaxWorkers accordingly.
// Callers typically invoke this periodically (e.g. from a Ticker).
func (wp *WorkerPool) Autoscale() error {
	wp.mu.Lock()
	n := len(wp.workers)
	depth := wp.queue.Len()
	wp.mu.Unlock()

	if n == 0 {
		return nil
	}
	ratio := float64(depth) / float64(n)

	if ratio > wp.cfg.ScaleUpThreshold && n < wp.cfg.MaxWorkers {
		err := wp.spawnWorker()
		wp.Events.DispatchEvent(loop.NewCustomEvent(EventAutoscaled, "up").EventPtr())
		return err
	}
	if ratio < wp.cfg.ScaleDownThreshold && n > wp.cfg.MinWorkers {
		err := wp.destroyIdlest()
		wp.Events.DispatchEvent(loop.NewCustomEvent(EventAutoscaled, "down").EventPtr())
		return err
	}
	return nil
}

func (wp *WorkerPool) destroyIdlest() error {
	wp.mu.Lock()
	var idlest WorkerID
	var idlestSince time.Time
	for _, w := range wp.workers {
		if wp.load[w] > 0 {
			continue
		}
		since := wp.lastUse[w]
		if idlest == "" || since.Before(idlestSince) {
			idlest, idlestSince = w, since
		}
	}
	if idlest == "" {
		wp.mu.Unlock()
		return nil
	}
	if wp.cfg.IdleTimeout > 0 && time.Since(idlestSince) < wp.cfg.IdleTimeout {
		wp.mu.Unlock()
		return nil
	}
	for i, w := range wp.workers {
		if w == idlest {
			wp.workers = append(wp.workers[:i], wp.workers[i+1:]...)
			break
		}
	}
	delete(wp.load, idlest)
	delete(wp.lastUse, idlest)
	wp.mu.Unlock()

	err := wp.hooks.DestroyWorker(idlest)
	wp.Events.DispatchEvent(loop.NewCustomEvent(EventWorkerDestroyed, idlest).EventPtr())
	return err
}

// RecordMetrics publishes a metrics snapshot through the optional
// microbatch-backed flush pipeline configured at construction.
func (wp *WorkerPool) RecordMetrics(ctx context.Context, m Metrics) error {
	if wp.metricsBatcher == nil {
		return nil
	}
	_, err := wp.metricsBatcher.Submit(ctx, m)
	return err
}

// Size returns the current worker count.
func (wp *WorkerPool) Size() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return len(wp.workers)
}

// QueueDepth returns the number of items waiting for dispatch.
func (wp *WorkerPool) QueueDepth() int { return wp.queue.Len() }

// Close stops accepting new work, destroys every worker via the
// DestroyWorker hook, and closes the metrics batcher if configured.
func (wp *WorkerPool) Close() error {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return nil
	}
	wp.closed = true
	workers := wp.workers
	wp.workers = nil
	wp.mu.Unlock()

	var firstErr error
	for _, w := range workers {
		if err := wp.hooks.DestroyWorker(w); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if wp.metricsBatcher != nil {
		if err := wp.metricsBatcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
