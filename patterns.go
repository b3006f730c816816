package concrt

import (
	"context"
	"time"

	catrate "github.com/joeycumines/go-catrate"

	"github.com/concrt-go/concrt/internal/loop"
	"github.com/concrt-go/concrt/internal/patterns"
)

// Public re-exports of the patterns registry and worker-pool skeleton,
// backed by internal/patterns.
type (
	// Pattern is the lifecycle/metrics base every higher-level component
	// (the parallel backend, a custom domain worker pool) builds on.
	Pattern = patterns.Base
	// PatternMetrics is a point-in-time snapshot of a Pattern's counters.
	PatternMetrics = patterns.Metrics
	// PatternConfig configures a Pattern constructed by NewPattern.
	PatternConfig = patterns.Config
	// PatternRegistry tracks named Pattern instances and reports
	// aggregate metrics and health.
	PatternRegistry = patterns.Registry
	// PatternHealth is the registry-wide health classification.
	PatternHealth = patterns.Health

	// WorkerPool is the worker-pool skeleton: priority-sorted queue,
	// configurable min/max workers, idle timeout, autoscaling, and a
	// pluggable load balancer.
	WorkerPool = patterns.WorkerPool
	// WorkerPoolConfig configures a WorkerPool constructed by
	// NewWorkerPool.
	WorkerPoolConfig = patterns.WorkerPoolConfig
	// WorkerPoolHooks are the operations a concrete pool must supply:
	// CreateWorker, DestroyWorker, ExecuteTask.
	WorkerPoolHooks = patterns.Hooks
	// WorkItem is a unit of work submitted to a WorkerPool.
	WorkItem = patterns.WorkItem
	// WorkerID identifies one worker managed by a WorkerPool.
	WorkerID = patterns.WorkerID
	// LoadBalancer selects which worker receives the next WorkItem.
	LoadBalancer = patterns.LoadBalancer

	// PoolEvent is a worker-pool lifecycle notification (worker created or
	// destroyed, autoscale decision), dispatched through WorkerPool.Events.
	PoolEvent = loop.Event
	// PoolEventListener observes PoolEvent notifications.
	PoolEventListener = loop.EventListenerFunc
)

// Worker lifecycle event type names dispatched on WorkerPool.Events.
const (
	EventWorkerCreated   = patterns.EventWorkerCreated
	EventWorkerDestroyed = patterns.EventWorkerDestroyed
	EventAutoscaled      = patterns.EventAutoscaled
)

const (
	HealthHealthy   = patterns.HealthHealthy
	HealthDegraded  = patterns.HealthDegraded
	HealthUnhealthy = patterns.HealthUnhealthy
)

// NewPattern constructs a Pattern from cfg.
func NewPattern(cfg PatternConfig) *Pattern {
	return patterns.NewBase(cfg)
}

// NewPatternRegistry constructs an empty PatternRegistry.
func NewPatternRegistry() *PatternRegistry {
	return patterns.NewRegistry()
}

// NewRoundRobinBalancer constructs the default LoadBalancer: cycles
// through workers in registration order, ignoring load.
func NewRoundRobinBalancer() LoadBalancer {
	return &patterns.RoundRobinBalancer{}
}

// NewLeastLoadedBalancer constructs a LoadBalancer that always picks the
// worker with the smallest outstanding load.
func NewLeastLoadedBalancer() LoadBalancer {
	return patterns.LeastLoadedBalancer{}
}

// NewRateLimiter constructs a go-catrate multi-window rate limiter
// suitable for WorkerPoolConfig.RateLimiter.
func NewRateLimiter(rates map[time.Duration]int) *catrate.Limiter {
	return catrate.NewLimiter(rates)
}

// NewWorkerPool constructs a WorkerPool. flushMetrics, if non-nil, is
// invoked with batched PatternMetrics snapshots submitted via
// WorkerPool.RecordMetrics.
func NewWorkerPool(cfg WorkerPoolConfig, hooks WorkerPoolHooks, flushMetrics func(ctx context.Context, snapshots []PatternMetrics) error) (*WorkerPool, error) {
	return patterns.NewWorkerPool(cfg, hooks, flushMetrics)
}
